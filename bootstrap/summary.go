package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/svckit/component"
	"github.com/kbukum/svckit/di"
)

// ServiceStatus holds the startup status of an eagerly initialized service.
type ServiceStatus struct {
	Name    string
	Status  string
	Healthy bool
}

// Summary tracks and displays the application bootstrap process.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	services        []ServiceStatus
	out             io.Writer
}

// NewSummary creates a new bootstrap summary tracker that prints to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		services:    make([]ServiceStatus, 0),
		out:         os.Stdout,
	}
}

// SetOutput redirects the summary.
func (s *Summary) SetOutput(w io.Writer) {
	s.out = w
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackService records the startup status of a service.
func (s *Summary) TrackService(name, status string, healthy bool) {
	s.services = append(s.services, ServiceStatus{
		Name:    name,
		Status:  status,
		Healthy: healthy,
	})
}

// Services returns the tracked startup statuses.
func (s *Summary) Services() []ServiceStatus {
	return s.services
}

// DisplaySummary prints the startup summary: infrastructure reported by
// Describable services, eager services, the registrations with their
// dependencies, and live health.
func (s *Summary) DisplaySummary(c *di.Container) {
	w := s.out
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())
	if c != nil {
		fmt.Fprintf(w, "   container %s\n", c.ID())
	}
	fmt.Fprintln(w)

	if c != nil {
		s.writeInfrastructure(w, c)
	}
	s.writeServices(w)
	if c != nil {
		s.writeRegistrations(w, c)
		s.writeHealth(w, c)
	}
	fmt.Fprintln(w)
}

func (s *Summary) writeInfrastructure(w io.Writer, c *di.Container) {
	var infra []component.Description
	for _, e := range c.Resolved() {
		d, ok := e.Instance.(component.Describable)
		if !ok {
			continue
		}
		desc := d.Describe()
		if desc.Name == "" {
			desc.Name = e.Key.String()
		}
		infra = append(infra, desc)
	}
	if len(infra) == 0 {
		return
	}

	fmt.Fprintf(w, "📊 Infrastructure\n")
	for i, d := range infra {
		details := d.Details
		if d.Port > 0 && !strings.Contains(details, fmt.Sprintf(":%d", d.Port)) {
			details = fmt.Sprintf("%s (:%d)", details, d.Port)
		}
		fmt.Fprintf(w, "   %s %s [%s]: %s\n", branch(i, len(infra)), d.Name, d.Type, details)
	}
	fmt.Fprintln(w)
}

func (s *Summary) writeServices(w io.Writer) {
	if len(s.services) == 0 {
		return
	}

	fmt.Fprintf(w, "📦 Services\n")
	healthy := 0
	for i, svc := range s.services {
		fmt.Fprintf(w, "   %s %s %s (%s)\n", branch(i, len(s.services)), statusIcon(svc.Status, svc.Healthy), svc.Name, svc.Status)
		if svc.Healthy {
			healthy++
		}
	}
	fmt.Fprintln(w)

	total := len(s.services)
	if healthy == total {
		fmt.Fprintf(w, "✅ All services initialized (%d/%d)\n", healthy, total)
	} else {
		fmt.Fprintf(w, "⚠️  Some services have issues (%d/%d initialized)\n", healthy, total)
	}
}

func (s *Summary) writeRegistrations(w io.Writer, c *di.Container) {
	regs := c.Registrations()
	fmt.Fprintf(w, "\n💼 Registrations (%d)\n", len(regs))
	for i, r := range regs {
		last := i == len(regs)-1
		fmt.Fprintf(w, "   %s %s [%s] (%s)\n", branch(i, len(regs)), r.Key, r.Kind, r.State)
		for j, dep := range r.Dependencies {
			indent := "│   "
			if last {
				indent = "    "
			}
			fmt.Fprintf(w, "   %s%s 🔗 %s\n", indent, branch(j, len(r.Dependencies)), dep)
		}
	}
}

func (s *Summary) writeHealth(w io.Writer, c *di.Container) {
	results := component.HealthAll(context.Background(), c)
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(w, "\n🏥 Health Check\n")
	for i, h := range results {
		msg := ""
		if h.Message != "" {
			msg = " (" + h.Message + ")"
		}
		fmt.Fprintf(w, "   %s %s %s: %s%s\n", branch(i, len(results)), healthStatusIcon(h.Status), h.Name, h.Status, msg)
	}
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func statusIcon(status string, healthy bool) string {
	if !healthy {
		return "❌"
	}
	switch status {
	case "initialized", "healthy":
		return "✅"
	default:
		return "⚠️"
	}
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
