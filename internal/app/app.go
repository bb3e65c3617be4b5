package app

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mbeaufort/pitchrally/internal/game"
	"github.com/mbeaufort/pitchrally/internal/handlers"
	"github.com/mbeaufort/pitchrally/internal/logger"
	"github.com/mbeaufort/pitchrally/internal/repository"
	"github.com/mbeaufort/pitchrally/internal/services"
	"github.com/mbeaufort/pitchrally/internal/validation"
	"github.com/mbeaufort/pitchrally/internal/websocket"
	"github.com/mbeaufort/pitchrally/pkg/arbiter"
)

// Config holds application configuration
type Config struct {
	DBPath         string
	BaseURL        string
	ArbiterTimeout time.Duration
	TurnSeconds    int
}

// App holds all application dependencies
type App struct {
	log      logger.Logger
	handlers *handlers.Handlers
	registry *game.Registry
	repo     *repository.Repository
	baseURL  string
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg Config, judge arbiter.Client) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	timeout := cfg.ArbiterTimeout
	if timeout == 0 {
		timeout = arbiter.DefaultTimeout
	}
	pipeline := validation.NewPipeline(repo, repo, judge, timeout, log)

	// The hub and the session registry reference each other: events
	// flow registry -> hub, commands flow hub -> registry.
	hub := websocket.New(log)
	hub.Start()
	registry := game.NewRegistry(repo, pipeline, hub, log, cfg.TurnSeconds)
	hub.SetDispatcher(registry)

	baseURL := cfg.BaseURL

	matchService := services.NewMatchService(log, repo, baseURL)
	categoryService := services.NewCategoryService(log, repo)
	leaderboardService := services.NewLeaderboardService(log, repo)

	h := handlers.New(matchService, categoryService, leaderboardService, hub, log)

	return &App{
		log:      log,
		handlers: h,
		registry: registry,
		repo:     repo,
		baseURL:  baseURL,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close performs graceful shutdown of app resources
func (a *App) Close() {
	if a.repo != nil {
		a.repo.Close()
	}
}

// Run starts the HTTP server
func (a *App) Run(addr string) error {
	url := a.baseURL
	if url == "" {
		ip := getPreferredIP(realNetworkProvider{})
		url = fmt.Sprintf("http://%s%s", ip, addr)
	}

	a.log.Info("Server starting", "url", url, "active_matches", a.registry.ActiveSessions())
	return http.ListenAndServe(addr, a.Router())
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IP address for LAN access, so invite
// QR codes resolve from other devices on the network.
// Prefers private network addresses (192.168.x.x, 10.x.x.x, 172.16-31.x.x).
// Falls back to localhost if no suitable address is found.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP

	for _, iface := range ifaces {
		// Skip down, loopback, and point-to-point interfaces
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}

			// Only consider IPv4 addresses
			if ip == nil || ip.To4() == nil {
				continue
			}

			if ip.IsLoopback() {
				continue
			}

			candidates = append(candidates, ip)
		}
	}

	// Prefer private network addresses
	for _, ip := range candidates {
		ipStr := ip.String()
		if strings.HasPrefix(ipStr, "192.168.") ||
			strings.HasPrefix(ipStr, "10.") ||
			isPrivate172(ip) {
			return ipStr
		}
	}

	if len(candidates) > 0 {
		return candidates[0].String()
	}

	return "localhost"
}

// isPrivate172 checks if IP is in 172.16.0.0/12 range
func isPrivate172(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}
