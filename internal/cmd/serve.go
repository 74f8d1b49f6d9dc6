package cmd

import (
	"fmt"

	"github.com/fluxmind/flux/internal/logging"
	"github.com/fluxmind/flux/internal/server"
)

// ServeCmd starts the SSH server
type ServeCmd struct {
	Host string `help:"Host to bind to" default:"localhost"`
	Port string `help:"Port to listen on" default:"23235"`
}

// Run executes the serve command
func (s *ServeCmd) Run(cli *CLI) error {
	logging.Logger.Info("Starting flux SSH server",
		"host", s.Host,
		"port", s.Port,
		"db_path", cli.DBPath)

	dbPath := expandPath(cli.DBPath)

	srv, err := server.NewServer(s.Host, s.Port, dbPath, cli.GetSettings())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Start server (blocks until shutdown)
	return srv.Start()
}
