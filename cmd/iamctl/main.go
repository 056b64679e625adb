package main

import "github.com/terraconstructs/iamctl/cmd/iamctl/cmd"

func main() {
	cmd.Execute()
}
