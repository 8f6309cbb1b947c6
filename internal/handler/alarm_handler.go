package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/infra/timer"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/alarm"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/fire"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/reminder"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/timerkey"
)

type rescheduleFailure struct {
	ReminderID int64  `json:"reminder_id"`
	Error      string `json:"error"`
}

type rescheduleResponse struct {
	Scheduled int                 `json:"scheduled"`
	Skipped   int                 `json:"skipped,omitempty"`
	Failures  []rescheduleFailure `json:"failures"`
	Warnings  []alarm.Warning     `json:"warnings,omitempty"`
}

// AlarmHandler receives timer callbacks from HTTP-based timer backends and
// exposes the reschedule pass.
type AlarmHandler struct {
	fireHandler *fire.Handler
	reminders   *reminder.Service
}

func NewAlarmHandler(fireHandler *fire.Handler, reminders *reminder.Service) *AlarmHandler {
	return &AlarmHandler{
		fireHandler: fireHandler,
		reminders:   reminders,
	}
}

func (h *AlarmHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/alarms/fire", h.HandleFire)
	rg.POST("/alarms/reschedule", h.HandleReschedule)
}

// HandleFire answers 5xx on failure so the queue redelivers the task.
func (h *AlarmHandler) HandleFire(c *gin.Context) {
	ctx := c.Request.Context()

	var payload timer.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	id, slot, err := timerkey.Parse(payload.Key)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if id != payload.ReminderID || slot != payload.Slot {
		respondError(c, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("key %q does not match reminder %d slot %s", payload.Key, payload.ReminderID, payload.Slot))
		return
	}

	slog.DebugContext(ctx, "timer callback received",
		slog.String("key", payload.Key),
		slog.String("task_name", c.GetHeader("X-CloudTasks-TaskName")),
	)

	out, err := h.fireHandler.Handle(ctx, payload)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AlarmHandler) HandleReschedule(c *gin.Context) {
	report, err := h.reminders.RescheduleAll(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	resp := rescheduleResponse{
		Scheduled: report.Scheduled,
		Skipped:   report.Skipped,
		Failures:  make([]rescheduleFailure, 0, len(report.Failures)),
		Warnings:  report.Warnings,
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, rescheduleFailure{ReminderID: f.ReminderID, Error: f.Err.Error()})
	}

	status := http.StatusOK
	if len(report.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, resp)
}
