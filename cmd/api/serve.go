package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/RecallAPI/internal/handlers"
	"github.com/akolanti/RecallAPI/internal/mcpServer"
	"github.com/akolanti/RecallAPI/internal/server"
	"github.com/spf13/cobra"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen-addr", "", "server listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if listenAddr == "" {
		listenAddr = settings.ListenAddr
	}

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	a, err := buildApp(serviceContext, settings)
	if err != nil {
		logger.Error("One or more services failed to initialize. Shutting down.", "error", err)
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("closing services", "error", err)
		}
	}()

	mcp, err := mcpServer.NewServer(a.rag, a.retriever, a.corpus)
	if err != nil {
		return err
	}
	h := handlers.NewHandler(a.corpus, a.rag, settings.Corpus.UploadDir)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	go server.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		CloseServices:    closeExternalServices,
	})
	go func() {
		if err := server.CreateServer(listenAddr, h, mcp.Handler()); err != nil {
			gracefulShutdown <- syscall.SIGTERM
		}
	}()

	<-stopExecution
	logger.Info("Server stopped")
	return nil
}
