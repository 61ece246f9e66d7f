package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-journey/internal/app"
	"quiz-journey/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// startPayload selects one of the three quiz sources. An empty mode means the
// questions are supplied by the client (custom quiz).
type startPayload struct {
	Mode      string                `json:"mode"`
	Title     string                `json:"title"`
	Questions []domain.Question     `json:"questions"`
	LevelID   int                   `json:"levelId"`
	Settings  domain.RandomSettings `json:"settings"`
}

type answerPayload struct {
	Choice string `json:"choice"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type sessionPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Total int    `json:"total"`
}

// questionView hides the correct answer until the question is resolved.
type questionView struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Time      int      `json:"time"`
	Index     int      `json:"index"`
	Total     int      `json:"total"`
	Remaining int      `json:"remaining"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type feedbackPayload struct {
	Selected      string `json:"selected,omitempty"`
	CorrectAnswer string `json:"correctAnswer"`
	Score         int    `json:"score"`
}

type finishedPayload struct {
	Correct        int              `json:"correct"`
	Incorrect      int              `json:"incorrect"`
	Total          int              `json:"total"`
	WrongQuestions []domain.Mistake `json:"wrongQuestions"`
	Score          int              `json:"score"`
	Message        string           `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and runs one quiz session at a
// time per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	var (
		sessionID   string
		cancelSub   func()
		forwardDone chan struct{}
	)
	stopSession := func() {
		if cancelSub == nil {
			return
		}
		cancelSub()
		<-forwardDone
		h.service.Abandon(ctx, sessionID)
		cancelSub, sessionID = nil, ""
	}
	emit := func(msg outboundMessage[any]) {
		deliver(send, writerDone, msg)
	}
	sendError := func(err error) {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError(errors.New("invalid start payload"))
				continue
			}
			cfg, err := h.buildQuiz(ctx, payload)
			if err != nil {
				sendError(err)
				continue
			}
			stopSession()

			session, err := h.service.Start(ctx, cfg)
			if err != nil {
				sendError(err)
				continue
			}
			events, cancel, err := h.service.Subscribe(ctx, session.ID())
			if err != nil {
				sendError(err)
				continue
			}
			sessionID, cancelSub = session.ID(), cancel
			forwardDone = make(chan struct{})
			emit(outboundMessage[any]{Type: "session", Payload: sessionPayload{
				ID: session.ID(), Title: session.Title(), Total: len(cfg.Questions),
			}})
			go forwardEvents(events, send, closeSignals, writerDone, forwardDone)

		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				sendError(errors.New("invalid answer payload"))
				continue
			}
			if _, err := h.service.SubmitAnswer(ctx, sessionID, payload.Choice); err != nil {
				sendError(err)
			}

		case "next":
			if _, err := h.service.Advance(ctx, sessionID); err != nil {
				sendError(err)
			}

		default:
			sendError(errors.New("unsupported message type"))
		}
	}

	close(closeSignals)
	stopSession()
	close(send)
	<-writerDone
}

func (h *WSHandler) buildQuiz(ctx context.Context, p startPayload) (domain.QuizConfig, error) {
	switch p.Mode {
	case "level":
		return h.service.LevelQuiz(ctx, p.LevelID)
	case "random":
		return h.service.RandomQuiz(ctx, p.Settings)
	case "", "custom":
		return domain.PrepareQuiz(domain.QuizConfig{Title: p.Title, Questions: p.Questions})
	default:
		return domain.QuizConfig{}, errors.New("unknown quiz mode " + p.Mode)
	}
}

// deliver queues msg for the writer, dropping it once the writer has stopped
// on a write error. It reports whether the message was queued.
func deliver(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

// forwardEvents translates session events into wire messages until the
// subscription is cancelled or the connection closes.
func forwardEvents(events <-chan domain.Event, send chan<- outboundMessage[any], closeSignals, writerDone <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	var current domain.Question
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Question != nil {
				current = *ev.Question
			}
			msg, ok := toMessage(ev, current)
			if !ok {
				continue
			}
			select {
			case send <- msg:
			case <-closeSignals:
				return
			case <-writerDone:
				return
			}
		case <-closeSignals:
			return
		}
	}
}

func toMessage(ev domain.Event, current domain.Question) (outboundMessage[any], bool) {
	snap := ev.Snapshot
	switch ev.Type {
	case domain.EventQuestion:
		if ev.Question == nil {
			return outboundMessage[any]{}, false
		}
		q := ev.Question
		return outboundMessage[any]{Type: string(ev.Type), Payload: questionView{
			ID: q.ID, Question: q.Question, Options: q.Options, Time: q.TimeBudget(),
			Index: snap.Index, Total: snap.Total, Remaining: snap.Remaining,
		}}, true
	case domain.EventTick:
		return outboundMessage[any]{Type: string(ev.Type), Payload: tickPayload{Remaining: snap.Remaining}}, true
	case domain.EventCorrect, domain.EventIncorrect, domain.EventTimeout:
		return outboundMessage[any]{Type: string(ev.Type), Payload: feedbackPayload{
			Selected: snap.Selected, CorrectAnswer: current.CorrectAnswer, Score: snap.Score,
		}}, true
	case domain.EventFinished:
		tally := snap.Tally
		wrong := tally.WrongQuestions
		if wrong == nil {
			wrong = []domain.Mistake{}
		}
		return outboundMessage[any]{Type: string(ev.Type), Payload: finishedPayload{
			Correct: tally.Correct, Incorrect: tally.Incorrect, Total: tally.Total,
			WrongQuestions: wrong, Score: tally.Score(), Message: app.MotivationalMessage(tally),
		}}, true
	}
	return outboundMessage[any]{}, false
}
