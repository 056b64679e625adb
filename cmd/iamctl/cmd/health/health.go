package health

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/cmd/iamctl/cmd/cmdutil"
	"github.com/terraconstructs/iamctl/cmd/iamctl/internal/output"
	"github.com/terraconstructs/iamctl/pkg/store"
)

var errUnhealthy = errors.New("one or more services are unhealthy")

// HealthCmd prints the system health dashboard
var HealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the health of the gateway and its services",
	Long: `Probes the health endpoint of every service behind the gateway concurrently
and prints one row per service. Exits non-zero when any service is unhealthy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := cmdutil.Console(cmd.Context())
		if err != nil {
			return err
		}

		c.Health.Refresh(cmd.Context())
		st := c.Health.State()

		out := cmd.OutOrStdout()
		pterm.DefaultSection.WithWriter(out).Println("System Health")
		renderDashboard(out, c.Health.Services(), st)

		if !st.AllHealthy() {
			return errUnhealthy
		}
		return nil
	},
}

func renderDashboard(w io.Writer, services []string, st store.HealthState) {
	t := output.NewTable(w, "SERVICE", "STATUS", "LATENCY", "VERSION", "UPTIME", "ERROR")
	for _, name := range services {
		svc, ok := st.Services[name]
		if !ok {
			t.Row(name, "unknown", "", "", "", "")
			continue
		}
		var version, uptime string
		if svc.Report != nil {
			version, uptime = svc.Report.Version, svc.Report.Uptime
		}
		t.Row(svc.Service, svc.Status, svc.Latency.Round(time.Millisecond).String(), version, uptime, svc.Error)
	}
	_ = t.Flush()
	fmt.Fprintf(w, "\nChecked at %s\n", output.Timestamp(st.CheckedAt))
}
