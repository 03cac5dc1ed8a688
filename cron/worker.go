package cron

import (
	"context"
	"encoding/json"
	"log"

	"clinicbook/config"
	"clinicbook/models"
	"clinicbook/services/booking"
	"clinicbook/services/tasks"
	"clinicbook/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitNotifyWorker runs the availability-notification worker in background.
// Each task is one createAvailabilityNotification call to the scheduling
// backend; asynq retries failed deliveries.
func InitNotifyWorker(backend booking.SchedulingBackend) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisNotifyQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeAvailabilityNotify, handleNotifyTask(backend))

	go func() {
		log.Println("[NotifyWorker] starting async worker...")
		if err := srv.Run(mux); err != nil {
			log.Fatalf("[NotifyWorker] failed to start worker: %v", err)
		}
	}()
}

func handleNotifyTask(backend booking.SchedulingBackend) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()

		var req models.AvailabilityNotificationRequest
		if err := json.Unmarshal(task.Payload(), &req); err != nil {
			logger.Error("invalid notify payload", zap.Error(err))
			return err
		}

		if err := backend.CreateAvailabilityNotification(ctx, req); err != nil {
			logger.Warn("availability notification delivery failed; will retry",
				zap.String("patientID", req.PatientID),
				zap.String("date", string(req.Date)),
				zap.Error(err))
			return err
		}

		logger.Info("availability notification registered",
			zap.String("patientID", req.PatientID),
			zap.String("typeID", req.AppointmentTypeID),
			zap.String("date", string(req.Date)),
			zap.Strings("windows", clockWindows(req.TimeWindows)))
		return nil
	}
}

func clockWindows(windows []models.TimeWindow) []string {
	out := make([]string, len(windows))
	for i, w := range windows {
		out[i] = utils.MinutesToClock(w.Start) + "-" + utils.MinutesToClock(w.End)
	}
	return out
}
