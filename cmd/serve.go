/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Saurav134/Agentic-Project-Builder/internal/server"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the builder over HTTP and websocket",
	Long: `Serve exposes the pipeline to a browser front end:

  GET  /api/health         liveness and whether a run is in progress
  POST /api/generate       run the pipeline and return the result
  GET  /api/files          list generated files
  GET  /api/files/{path}   read one generated file
  GET  /api/download       zip of the generated project
  GET  /ws/generate        stream run events over a websocket
  GET  /metrics            Prometheus metrics

Only one generation runs at a time; concurrent requests get 409.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newBuilder(ctx)
		if err != nil {
			return err
		}

		srv := server.New(rt.runner, rt.fs, rt.metrics, rt.log.Named("server"), server.Options{
			Port:    rt.cfg.Server.Port,
			Origins: rt.cfg.Server.Origins,
		})

		var wg sync.WaitGroup
		errChan := make(chan error, 1)
		srv.Start(&wg, errChan)
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ builder API listening on %s (project root %s)\n", srv.Addr(), rt.fs.Root())

		select {
		case err = <-errChan:
		case <-ctx.Done():
			rt.log.Info("shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			rt.log.Warn("shutdown", zap.Error(serr))
		}
		wg.Wait()
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "listen port (default server.port)")
	serveCmd.Flags().StringSlice("origins", nil, "allowed CORS origins (default server.origins)")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.origins", serveCmd.Flags().Lookup("origins"))
}
