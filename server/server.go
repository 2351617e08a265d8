package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/therolffr/bichon/api"
	bichon_errors "github.com/therolffr/bichon/errors"
	"github.com/therolffr/bichon/internal/config"
	"github.com/therolffr/bichon/internal/cron"
	"github.com/therolffr/bichon/internal/logger"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/shutdown"
	"github.com/therolffr/bichon/internal/utils"
	"github.com/therolffr/bichon/services"
)

const shutdownWindow = 10 * time.Second

type Server struct {
	cfg      *config.Config
	log      logger.Logger
	services *services.Services
	signal   *shutdown.SignalManager
	cron     *cron.CronManager
}

func NewServer(cfg *config.Config, metaDB, envelopeDB *gorm.DB, log logger.Logger, version string) (*Server, error) {
	signal := shutdown.NewSignalManager()

	svcs, err := services.InitServices(cfg, metaDB, envelopeDB, signal, log, version)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		log:      log,
		services: svcs,
		signal:   signal,
		cron:     cron.NewCronManager(log, svcs.Repositories.OAuth2PendingRepository),
	}, nil
}

// Run starts every subsystem and blocks until shutdown: the signal
// manager, the OAuth2 refresher, the cron jobs, one sync task per
// enabled account, and the HTTP listener.
func (s *Server) Run() error {
	s.signal.Install()

	if err := s.ensureRootCredentials(); err != nil {
		return err
	}

	s.services.OAuth2Service.StartRefreshTask(s.signal, s.log)
	if err := s.cron.Start(); err != nil {
		return err
	}

	if err := s.startAccountSyncTasks(); err != nil {
		return err
	}

	router := gin.New()
	api.RegisterRoutes(router, s.services, s.cfg)

	addr := fmt.Sprintf("%s:%s", s.cfg.AppConfig.BindIP, s.cfg.AppConfig.HTTPPort)
	httpServer := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("HTTP server listening on %s", addr)
		var err error
		if s.cfg.AppConfig.EnableRestHTTPS {
			if readErr := s.checkTLSMaterial(); readErr != nil {
				errCh <- readErr
				return
			}
			err = httpServer.ListenAndServeTLS(s.cfg.AppConfig.TLSCertPath, s.cfg.AppConfig.TLSKeyPath)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.signal.Shutdown()
		return err
	case <-s.signal.Subscribe():
	}

	s.log.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownWindow)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		s.log.Warnf("HTTP server shutdown: %v", err)
	}
	s.cron.Stop()
	s.log.Info("Shutdown complete")
	return nil
}

// startAccountSyncTasks triggers the sync controller for every enabled
// account at boot.
func (s *Server) startAccountSyncTasks() error {
	accounts, err := s.services.Repositories.AccountRepository.GetAll(context.Background())
	if err != nil {
		return err
	}
	for _, account := range accounts {
		if account.Enabled {
			s.services.SyncController.TriggerStart(account.ID, account.Email)
		}
	}
	return nil
}

// ensureRootCredentials seeds the root token on first boot.
func (s *Server) ensureRootCredentials() error {
	ctx := context.Background()
	settings := s.services.Repositories.SystemSettingRepository

	root, err := settings.Get(ctx, models.SettingRootToken)
	if err != nil {
		return err
	}
	if root == nil {
		token := utils.GenerateSecureToken()
		if err := settings.Set(ctx, models.SettingRootToken, token); err != nil {
			return err
		}
		s.log.Infof("Generated initial root token: %s", token)
	}
	return nil
}

// checkTLSMaterial verifies the certificate and key are readable before
// binding; unreadable material aborts startup.
func (s *Server) checkTLSMaterial() error {
	for _, path := range []string{s.cfg.AppConfig.TLSCertPath, s.cfg.AppConfig.TLSKeyPath} {
		if path == "" {
			return bichon_errors.New(bichon_errors.InternalError, "HTTPS enabled but TLS cert/key paths not set")
		}
		if _, err := os.Stat(filepath.Clean(path)); err != nil {
			return bichon_errors.Wrap(bichon_errors.InternalError,
				fmt.Sprintf("cannot read TLS material at %s", path), err)
		}
	}
	return nil
}
