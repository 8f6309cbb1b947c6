package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KasumiMercury/primind-weekly-alarm/internal/domain"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/alarm"
	"github.com/KasumiMercury/primind-weekly-alarm/internal/service/reminder"
)

type reminderResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	Days     string `json:"days"`
	Enabled  bool   `json:"enabled"`
	TimeText string `json:"time_text"`
	Summary  string `json:"summary"`
}

func toReminderResponse(r domain.Reminder) reminderResponse {
	return reminderResponse{
		ID:       r.ID,
		Name:     r.Name,
		Hour:     r.Hour,
		Minute:   r.Minute,
		Days:     r.Weekdays.String(),
		Enabled:  r.Enabled,
		TimeText: r.TimeText(),
		Summary:  r.Weekdays.Summary(),
	}
}

type reminderResultResponse struct {
	Reminder reminderResponse `json:"reminder"`
	Schedule *alarm.Result    `json:"schedule,omitempty"`
}

type createReminderRequest struct {
	Name    string  `json:"name" binding:"required"`
	Hour    *int    `json:"hour" binding:"required,min=0,max=23"`
	Minute  *int    `json:"minute" binding:"required,min=0,max=59"`
	Days    *string `json:"days" binding:"omitempty,len=7"`
	Enabled *bool   `json:"enabled"`
}

type updateReminderRequest struct {
	Name   *string `json:"name" binding:"omitempty,min=1"`
	Hour   *int    `json:"hour" binding:"omitempty,min=0,max=23"`
	Minute *int    `json:"minute" binding:"omitempty,min=0,max=59"`
	Days   *string `json:"days" binding:"omitempty,len=7"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type ReminderHandler struct {
	service *reminder.Service
}

func NewReminderHandler(service *reminder.Service) *ReminderHandler {
	return &ReminderHandler{service: service}
}

func (h *ReminderHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/reminders", h.List)
	rg.POST("/reminders", h.Create)
	rg.GET("/reminders/:id", h.Get)
	rg.PUT("/reminders/:id", h.Update)
	rg.PUT("/reminders/:id/enabled", h.SetEnabled)
	rg.DELETE("/reminders/:id", h.Delete)
	rg.POST("/reminders/:id/snooze", h.Snooze)
	rg.POST("/reminders/:id/dismiss", h.Dismiss)
}

func (h *ReminderHandler) List(c *gin.Context) {
	records, err := h.service.List(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	resp := make([]reminderResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, toReminderResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"reminders": resp})
}

func (h *ReminderHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	r, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReminderResponse(r))
}

func (h *ReminderHandler) Create(c *gin.Context) {
	var req createReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	in := reminder.CreateInput{
		Name:    req.Name,
		Hour:    *req.Hour,
		Minute:  *req.Minute,
		Enabled: req.Enabled,
	}
	if req.Days != nil {
		days, err := parseDays(*req.Days)
		if err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		in.Weekdays = &days
	}

	res, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResultResponse(res))
}

func (h *ReminderHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	in := reminder.UpdateInput{
		Name:   req.Name,
		Hour:   req.Hour,
		Minute: req.Minute,
	}
	if req.Days != nil {
		days, err := parseDays(*req.Days)
		if err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		in.Weekdays = &days
	}

	res, err := h.service.Update(c.Request.Context(), id, in)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResultResponse(res))
}

func (h *ReminderHandler) SetEnabled(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req setEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	res, err := h.service.SetEnabled(c.Request.Context(), id, *req.Enabled)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResultResponse(res))
}

func (h *ReminderHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReminderHandler) Snooze(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	res, err := h.service.Snooze(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReminderHandler) Dismiss(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Dismiss(c.Request.Context(), id); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toResultResponse(res *reminder.Result) reminderResultResponse {
	return reminderResultResponse{
		Reminder: toReminderResponse(res.Reminder),
		Schedule: res.Schedule,
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "validation_error", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// parseDays is stricter than the persisted format: the API accepts exactly
// seven '0'/'1' characters.
func parseDays(s string) (domain.Weekdays, error) {
	if len(s) != domain.DaysPerWeek || strings.Trim(s, "01") != "" {
		return domain.Weekdays{}, fmt.Errorf("%w: days must be seven 0/1 characters, got %q", domain.ErrInvalidWeekday, s)
	}
	return domain.ParseWeekdays(s), nil
}
