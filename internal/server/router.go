// Package server exposes the room session to an out-of-process presentation
// layer over a local HTTP API: typed mutation endpoints, read snapshots, and
// a server-sent-events stream of collection updates. The API carries no
// authentication; it binds to loopback and trust is deliberately out of
// scope here.
package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bunkmate-app/bunkmate/backend/internal/model"
	"github.com/bunkmate-app/bunkmate/backend/internal/stats"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errMissingSession = errors.New("room session dependency required")
	errMissingHub     = errors.New("update hub dependency required")
)

// RoomSession is the slice of the session surface the API consumes.
type RoomSession interface {
	SaveStatus(statusType model.StatusType, date, note string) (model.DailyStatus, error)
	SendMessage(text string, replyTo *model.ReplyRef, poll *model.Poll) (model.Message, error)
	React(messageID, emoji string) error
	Vote(messageID, optionID string) error
	MarkRead(messageID string) error
	UpdateProfile(update model.ProfileUpdate) (model.User, error)
	AddEvent(title, date string, eventType model.EventType) (model.CalendarEvent, error)
	SetTyping(isTyping bool)
	Wake()
	Connected() bool
	User() model.User
	Roster() ([]model.User, error)
	Statuses() ([]model.DailyStatus, error)
	Messages() ([]model.Message, error)
	Events() ([]model.CalendarEvent, error)
	Typing() []model.TypingStatus
	MyStats() (model.AttendanceStats, error)
	Recommendation(dayOffset int) (stats.Recommendation, error)
}

// Dependencies wires the API handler.
type Dependencies struct {
	Session RoomSession
	Hub     *UpdateHub
	Logger  *zap.Logger
}

// NewHTTPHandler builds the gin router for the local API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Session == nil {
		return nil, errMissingSession
	}
	if deps.Hub == nil {
		return nil, errMissingHub
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{session: deps.Session, hub: deps.Hub, logger: logger}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/snapshot", handler.handleSnapshot)
	router.GET("/recommendation", handler.handleRecommendation)
	router.GET("/updates", handler.handleUpdates)
	router.POST("/status", handler.handleSaveStatus)
	router.POST("/messages", handler.handleSendMessage)
	router.POST("/reactions", handler.handleReact)
	router.POST("/poll-votes", handler.handleVote)
	router.POST("/reads", handler.handleMarkRead)
	router.POST("/events", handler.handleAddEvent)
	router.POST("/typing", handler.handleTyping)
	router.POST("/wake", handler.handleWake)
	router.PUT("/profile", handler.handleUpdateProfile)

	return router, nil
}

type httpHandler struct {
	session RoomSession
	hub     *UpdateHub
	logger  *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "connected": h.session.Connected()})
}

type snapshotPayload struct {
	User      model.User            `json:"user"`
	Users     []model.User          `json:"users"`
	Online    []string              `json:"online"`
	Statuses  []model.DailyStatus   `json:"statuses"`
	Messages  []model.Message       `json:"messages"`
	Events    []model.CalendarEvent `json:"events"`
	Typing    []model.TypingStatus  `json:"typing"`
	Stats     model.AttendanceStats `json:"stats"`
	Connected bool                  `json:"connected"`
}

func (h *httpHandler) handleSnapshot(c *gin.Context) {
	roster, err := h.session.Roster()
	if err != nil {
		h.fail(c, "snapshot roster", err)
		return
	}
	statuses, err := h.session.Statuses()
	if err != nil {
		h.fail(c, "snapshot statuses", err)
		return
	}
	messages, err := h.session.Messages()
	if err != nil {
		h.fail(c, "snapshot messages", err)
		return
	}
	events, err := h.session.Events()
	if err != nil {
		h.fail(c, "snapshot events", err)
		return
	}
	myStats, err := h.session.MyStats()
	if err != nil {
		h.fail(c, "snapshot stats", err)
		return
	}

	online := make([]string, 0, len(roster))
	for _, user := range roster {
		if user.Online {
			online = append(online, user.ID)
		}
	}

	c.JSON(http.StatusOK, snapshotPayload{
		User:      h.session.User(),
		Users:     roster,
		Online:    online,
		Statuses:  statuses,
		Messages:  messages,
		Events:    events,
		Typing:    h.session.Typing(),
		Stats:     myStats,
		Connected: h.session.Connected(),
	})
}

func (h *httpHandler) handleRecommendation(c *gin.Context) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_offset"})
		return
	}
	verdict, err := h.session.Recommendation(offset)
	if err != nil {
		h.fail(c, "recommendation", err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (h *httpHandler) handleUpdates(c *gin.Context) {
	stream, cleanup := h.hub.Subscribe(c.Request.Context())
	defer cleanup()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(io.Writer) bool {
		select {
		case kind, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent("update", string(kind))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type saveStatusPayload struct {
	Status string `json:"status"`
	Date   string `json:"date"`
	Note   string `json:"note"`
}

func (h *httpHandler) handleSaveStatus(c *gin.Context) {
	var request saveStatusPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	status, err := h.session.SaveStatus(model.StatusType(request.Status), request.Date, request.Note)
	if err != nil {
		h.fail(c, "save status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type sendMessagePayload struct {
	Text    string          `json:"text"`
	ReplyTo *model.ReplyRef `json:"replyTo"`
	Poll    *model.Poll     `json:"poll"`
}

func (h *httpHandler) handleSendMessage(c *gin.Context) {
	var request sendMessagePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if request.Text == "" && request.Poll == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_message"})
		return
	}
	msg, err := h.session.SendMessage(request.Text, request.ReplyTo, request.Poll)
	if err != nil {
		h.fail(c, "send message", err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

type reactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

func (h *httpHandler) handleReact(c *gin.Context) {
	var request reactionPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.MessageID == "" || request.Emoji == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.session.React(request.MessageID, request.Emoji); err != nil {
		h.fail(c, "react", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type votePayload struct {
	MessageID string `json:"messageId"`
	OptionID  string `json:"optionId"`
}

func (h *httpHandler) handleVote(c *gin.Context) {
	var request votePayload
	if err := c.ShouldBindJSON(&request); err != nil || request.MessageID == "" || request.OptionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.session.Vote(request.MessageID, request.OptionID); err != nil {
		h.fail(c, "vote", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type readPayload struct {
	MessageID string `json:"messageId"`
}

func (h *httpHandler) handleMarkRead(c *gin.Context) {
	var request readPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.MessageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.session.MarkRead(request.MessageID); err != nil {
		h.fail(c, "mark read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type addEventPayload struct {
	Title string `json:"title"`
	Date  string `json:"date"`
	Type  string `json:"type"`
}

func (h *httpHandler) handleAddEvent(c *gin.Context) {
	var request addEventPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Title == "" || request.Date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	event, err := h.session.AddEvent(request.Title, request.Date, model.EventType(request.Type))
	if err != nil {
		h.fail(c, "add event", err)
		return
	}
	c.JSON(http.StatusOK, event)
}

type typingPayload struct {
	IsTyping bool `json:"isTyping"`
}

func (h *httpHandler) handleTyping(c *gin.Context) {
	var request typingPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	h.session.SetTyping(request.IsTyping)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleWake(c *gin.Context) {
	h.session.Wake()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "connected": h.session.Connected()})
}

type profilePayload struct {
	Name              *string `json:"name"`
	Avatar            *string `json:"avatar"`
	TargetDaysPerWeek *int    `json:"targetDaysPerWeek"`
	ExamName          *string `json:"examName"`
	ExamDate          *string `json:"examDate"`
	Theme             *string `json:"theme"`
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	var request profilePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	user, err := h.session.UpdateProfile(model.ProfileUpdate{
		Name:              request.Name,
		Avatar:            request.Avatar,
		TargetDaysPerWeek: request.TargetDaysPerWeek,
		ExamName:          request.ExamName,
		ExamDate:          request.ExamDate,
		Theme:             request.Theme,
	})
	if err != nil {
		h.fail(c, "update profile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *httpHandler) fail(c *gin.Context, operation string, err error) {
	h.logger.Error("request failed", zap.String("operation", operation), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}
