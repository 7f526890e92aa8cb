package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphsearch/graphsearchd/internal/cli/health"
	"github.com/graphsearch/graphsearchd/internal/cli/output"
	"github.com/graphsearch/graphsearchd/internal/cli/timeutil"
)

var (
	statusOutput  string
	statusPidFile string
	statusAPIPort int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the graphsearchd server.

This command checks the server health by calling the health endpoint
and displays the aggregate verdict, uptime, and per-service health.

Examples:
  # Check status (uses default settings)
  graphsearchd status

  # Check status with custom API port
  graphsearchd status --api-port 9080

  # Output as JSON
  graphsearchd status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/graphsearchd/graphsearchd.pid)")
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 8080, "API server port")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ServerStatus represents the server status information.
type ServerStatus struct {
	Running   bool            `json:"running" yaml:"running"`
	PID       int             `json:"pid,omitempty" yaml:"pid,omitempty"`
	Message   string          `json:"message" yaml:"message"`
	Healthy   bool            `json:"healthy" yaml:"healthy"`
	Ready     bool            `json:"ready" yaml:"ready"`
	StartedAt string          `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string          `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Services  map[string]bool `json:"services,omitempty" yaml:"services,omitempty"`
}

// serviceBanner mirrors the GET / response body.
type serviceBanner struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := ServerStatus{
		Running: false,
		Healthy: false,
		Message: "Server is not running",
	}

	// Use default PID file if not specified
	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	// Check PID file first
	pidData, err := os.ReadFile(pidPath)
	if err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
		if err == nil {
			// On Unix, FindProcess always succeeds; signal 0 checks liveness
			process, err := os.FindProcess(pid)
			if err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					status.Running = true
					status.PID = pid
				}
			}
		}
	}

	client := &http.Client{Timeout: 2 * time.Second}

	// Check health endpoint (works for both daemon and foreground mode)
	healthURL := fmt.Sprintf("http://localhost:%d/health", statusAPIPort)
	resp, err := client.Get(healthURL)
	if err == nil {
		defer func() { _ = resp.Body.Close() }()

		var healthResp health.Response
		if err := json.NewDecoder(resp.Body).Decode(&healthResp); err == nil {
			status.Running = true
			status.Healthy = healthResp.Healthy()
			status.Services = healthResp.Services
			if status.Healthy {
				status.Message = "Server is running and healthy"
			} else {
				status.Message = fmt.Sprintf("Server is running but degraded: %s", unhealthyServices(healthResp.Services))
			}
		} else {
			status.Running = true
			status.Message = "Server is running but health response invalid"
		}
	} else if status.Running {
		// PID file says running but health check failed
		status.Message = "Server process exists but health check failed"
	}

	// The banner carries start time and uptime
	bannerURL := fmt.Sprintf("http://localhost:%d/", statusAPIPort)
	if resp, err := client.Get(bannerURL); err == nil {
		var banner serviceBanner
		if err := json.NewDecoder(resp.Body).Decode(&banner); err == nil {
			status.StartedAt = banner.StartedAt
			status.Uptime = banner.Uptime
		}
		_ = resp.Body.Close()
	}

	// Readiness follows the lifecycle state, not subsystem health
	readyURL := fmt.Sprintf("http://localhost:%d/health/ready", statusAPIPort)
	if resp, err := client.Get(readyURL); err == nil {
		status.Ready = resp.StatusCode == http.StatusOK
		_ = resp.Body.Close()
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

func unhealthyServices(services map[string]bool) string {
	var names []string
	for name, healthy := range services {
		if !healthy {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func printStatusTable(status ServerStatus) {
	p := output.DefaultPrinter()

	p.Println()
	p.Println("graphsearchd Server Status")
	p.Println("==========================")
	p.Println()

	if status.Running {
		if status.Healthy {
			p.Success("  ● Running")
		} else {
			p.Warning("  ● Running (degraded)")
		}

		pairs := [][2]string{}
		if status.PID != 0 {
			pairs = append(pairs, [2]string{"  PID", strconv.Itoa(status.PID)})
		}
		if status.StartedAt != "" {
			pairs = append(pairs, [2]string{"  Started", timeutil.FormatTime(status.StartedAt)})
		}
		if status.Uptime != "" {
			pairs = append(pairs, [2]string{"  Uptime", timeutil.FormatUptime(status.Uptime)})
		}
		pairs = append(pairs, [2]string{"  Ready", strconv.FormatBool(status.Ready)})
		_ = output.SimpleTable(p.Writer(), pairs)
	} else {
		p.Error("  ○ Stopped")
	}

	if len(status.Services) > 0 {
		p.Println()

		names := make([]string, 0, len(status.Services))
		for name := range status.Services {
			names = append(names, name)
		}
		sort.Strings(names)

		table := output.NewTableData("SERVICE", "HEALTHY")
		for _, name := range names {
			table.AddRow(name, strconv.FormatBool(status.Services[name]))
		}
		_ = output.PrintTable(p.Writer(), table)
	}

	p.Println()
	p.Printf("  %s\n", status.Message)
	p.Println()
}
