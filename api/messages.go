package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lorebot/lore/internal/bot"
	"github.com/lorebot/lore/internal/log"
)

// Message is one entry in a channel's transcript.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MessageStore keeps channel transcripts in memory and implements
// bot.Messenger, standing in for a chat platform. Messages live for the
// process lifetime only.
type MessageStore struct {
	mu       sync.RWMutex
	channels map[string][]*Message
	byID     map[string]*Message
}

// NewMessageStore creates an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		channels: make(map[string][]*Message),
		byID:     make(map[string]*Message),
	}
}

// PostMessage appends a message to a channel.
func (s *MessageStore) PostMessage(_ context.Context, channelID, text string) (bot.MessageRef, error) {
	now := time.Now().UTC()
	m := &Message{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.channels[channelID] = append(s.channels[channelID], m)
	s.byID[m.ID] = m
	s.mu.Unlock()

	return bot.MessageRef{ChannelID: channelID, MessageID: m.ID}, nil
}

// UpdateMessage replaces the text of an existing message in place.
func (s *MessageStore) UpdateMessage(_ context.Context, ref bot.MessageRef, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byID[ref.MessageID]
	if !ok {
		return errors.New("message not found: " + ref.MessageID)
	}
	m.Text = text
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// Channel returns a channel's messages in post order.
func (s *MessageStore) Channel(channelID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.channels[channelID]
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, *m)
	}
	return out
}

// MessageHandler serves question submission and transcript reads.
type MessageHandler struct {
	dispatcher *bot.Dispatcher
	store      *MessageStore
	logger     log.Logger
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(dispatcher *bot.Dispatcher, store *MessageStore, logger log.Logger) *MessageHandler {
	return &MessageHandler{dispatcher: dispatcher, store: store, logger: logger}
}

// RegisterRoutes registers message routes on the given mux.
func (h *MessageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/questions", h.submitQuestion)
	mux.HandleFunc("GET /api/channels/{channel}/messages", h.listMessages)
}

// QuestionRequest is the body of POST /api/questions.
type QuestionRequest struct {
	ChannelID string `json:"channel_id"`
	Question  string `json:"question"`
}

// QuestionResponse acknowledges an accepted question.
type QuestionResponse struct {
	Status    string `json:"status"`
	ChannelID string `json:"channel_id"`
}

// submitQuestion queues a question and answers 202 immediately. The
// placeholder and the eventual answer appear in the channel transcript.
func (h *MessageHandler) submitQuestion(w http.ResponseWriter, r *http.Request) {
	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.ChannelID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "channel_id is required")
		return
	}

	if err := h.dispatcher.Submit(req.ChannelID, req.Question); err != nil {
		if errors.Is(err, bot.ErrBusy) {
			writeError(w, http.StatusTooManyRequests, "busy", err.Error())
			return
		}
		h.logger.Error("failed to submit question", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to submit question")
		return
	}

	writeJSON(w, http.StatusAccepted, QuestionResponse{
		Status:    "accepted",
		ChannelID: req.ChannelID,
	})
}

// MessagesResponse wraps a channel transcript.
type MessagesResponse struct {
	ChannelID string    `json:"channel_id"`
	Messages  []Message `json:"messages"`
}

func (h *MessageHandler) listMessages(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channel")
	writeJSON(w, http.StatusOK, MessagesResponse{
		ChannelID: channelID,
		Messages:  h.store.Channel(channelID),
	})
}
