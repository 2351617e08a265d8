package cron

import (
	"context"

	"github.com/opentracing/opentracing-go"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/therolffr/bichon/interfaces"
	"github.com/therolffr/bichon/internal/logger"
	"github.com/therolffr/bichon/internal/tracing"
)

// Schedules for the maintenance jobs.
const (
	// oauth2PendingSweepSchedule removes expired PKCE records every six
	// hours.
	oauth2PendingSweepSchedule = "0 */6 * * *"
)

// CronManager runs the low-frequency maintenance jobs. The service is a
// single process, so jobs start unconditionally.
type CronManager struct {
	log     logger.Logger
	cron    *cronv3.Cron
	pending interfaces.OAuth2PendingRepository
	jobIDs  map[string]cronv3.EntryID
}

func NewCronManager(log logger.Logger, pending interfaces.OAuth2PendingRepository) *CronManager {
	return &CronManager{
		log:     log,
		cron:    cronv3.New(),
		pending: pending,
		jobIDs:  make(map[string]cronv3.EntryID),
	}
}

func (cm *CronManager) Start() error {
	id, err := cm.cron.AddFunc(oauth2PendingSweepSchedule, cm.sweepOAuth2Pending)
	if err != nil {
		return err
	}
	cm.jobIDs["oauth2-pending-sweep"] = id

	cm.cron.Start()
	cm.log.Info("Cron manager started")
	return nil
}

func (cm *CronManager) Stop() {
	ctx := cm.cron.Stop()
	<-ctx.Done()
	cm.log.Info("Cron manager stopped")
}

func (cm *CronManager) sweepOAuth2Pending() {
	span := opentracing.StartSpan("CronManager.sweepOAuth2Pending")
	defer span.Finish()
	tracing.TagComponentCronJob(span)
	ctx := opentracing.ContextWithSpan(context.Background(), span)

	if err := cm.pending.Clean(ctx); err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("OAuth2 pending sweep failed: %v", err)
	}
}
