package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-journey/internal/app"
	"quiz-journey/internal/domain"
	"quiz-journey/internal/infra/memory"
)

func TestWebSocketCustomQuizFlow(t *testing.T) {
	conn := dialQuiz(t, newTestService(t))

	start := map[string]any{
		"type": "start",
		"payload": map[string]any{
			"title":     "اختباري",
			"questions": customQuestions(),
		},
	}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatalf("write start: %v", err)
	}

	_, session := readNext(conn, t, "session")
	if session["title"] != "اختباري" || session["total"] != float64(2) {
		t.Fatalf("unexpected session payload %+v", session)
	}
	_, q := readNext(conn, t, "question")
	if _, leaked := q["correctAnswer"]; leaked {
		t.Fatalf("question payload must not reveal the answer")
	}
	if q["index"] != float64(0) {
		t.Fatalf("expected first question, got %+v", q)
	}

	answer(t, conn, "114")
	_, fb := readNext(conn, t, "correct")
	if fb["correctAnswer"] != "114" || fb["score"] != float64(10) {
		t.Fatalf("unexpected feedback %+v", fb)
	}

	_, q = readNext(conn, t, "question")
	if q["index"] != float64(1) {
		t.Fatalf("expected second question, got %+v", q)
	}
	answer(t, conn, "الفاتحة")
	_, fb = readNext(conn, t, "incorrect")
	if fb["selected"] != "الفاتحة" || fb["correctAnswer"] != "اقرأ" {
		t.Fatalf("unexpected feedback %+v", fb)
	}

	_, fin := readNext(conn, t, "finished")
	if fin["correct"] != float64(1) || fin["incorrect"] != float64(1) || fin["total"] != float64(2) || fin["score"] != float64(10) {
		t.Fatalf("unexpected final tally %+v", fin)
	}
	wrong, _ := fin["wrongQuestions"].([]any)
	if len(wrong) != 1 {
		t.Fatalf("expected one mistake, got %+v", fin["wrongQuestions"])
	}
}

func TestWebSocketLevelQuiz(t *testing.T) {
	conn := dialQuiz(t, newTestService(t))

	if err := conn.WriteJSON(map[string]any{
		"type":    "start",
		"payload": map[string]any{"mode": "level", "levelId": 1},
	}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	_, session := readNext(conn, t, "session")
	if session["title"] != "السيرة النبوية" {
		t.Fatalf("unexpected session payload %+v", session)
	}
	readNext(conn, t, "question")
}

func TestWebSocketRejectsMalformedQuiz(t *testing.T) {
	conn := dialQuiz(t, newTestService(t))

	questions := customQuestions()
	questions[0].Options = questions[0].Options[:3]
	if err := conn.WriteJSON(map[string]any{
		"type":    "start",
		"payload": map[string]any{"title": "x", "questions": questions},
	}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	readNext(conn, t, "error")

	answer(t, conn, "114")
	readNext(conn, t, "error")
}

func dialQuiz(t *testing.T, service *app.QuizService) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func answer(t *testing.T, conn *websocket.Conn, choice string) {
	t.Helper()
	msg := map[string]any{"type": "answer", "payload": map[string]any{"choice": choice}}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write answer: %v", err)
	}
}

// readNext returns the next message, skipping countdown ticks.
func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	for {
		var msg struct {
			Type    string         `json:"type"`
			Payload map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if msg.Type == "tick" && expect != "tick" {
			continue
		}
		if expect != "" && msg.Type != expect {
			t.Fatalf("expected type %s, got %s (%+v)", expect, msg.Type, msg.Payload)
		}
		return msg.Type, msg.Payload
	}
}

func newTestService(t *testing.T) *app.QuizService {
	t.Helper()
	catalog, err := memory.NewLevelCatalog([]domain.Level{
		{ID: 1, Title: "السيرة النبوية", Difficulty: domain.DifficultyEasy, Description: "حياة النبي ﷺ"},
		{ID: 2, Title: "قصص الأنبياء", Difficulty: domain.DifficultyMedium, Description: "قصص الأنبياء في القرآن"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	source := memory.NewStaticQuestionSource(map[string][]domain.RawQuestion{
		"السيرة النبوية": {
			{Question: "في أي عام ولد النبي ﷺ؟", Options: []string{"عام الفيل", "عام الحزن", "عام الهجرة", "عام الفتح"}, CorrectAnswer: "عام الفيل"},
		},
		"": {
			{Question: "كم عدد سور القرآن؟", Options: []string{"110", "114", "120", "99"}, CorrectAnswer: "114"},
			{Question: "في أي شهر يصوم المسلمون؟", Options: []string{"شعبان", "رمضان", "رجب", "شوال"}, CorrectAnswer: "رمضان"},
			{Question: "من أول الخلفاء الراشدين؟", Options: []string{"عمر", "عثمان", "علي", "أبو بكر"}, CorrectAnswer: "أبو بكر"},
			{Question: "كم عدد أركان الإسلام؟", Options: []string{"ثلاثة", "أربعة", "خمسة", "ستة"}, CorrectAnswer: "خمسة"},
			{Question: "ما أول ما نزل من القرآن؟", Options: []string{"اقرأ", "الفاتحة", "المدثر", "الإخلاص"}, CorrectAnswer: "اقرأ"},
		},
	})
	return app.NewQuizService(memory.NewSessionStore(), source, catalog, app.ServiceOptions{
		Session: app.SessionOptions{AnswerDelay: 20 * time.Millisecond, TimeoutDelay: 20 * time.Millisecond},
	})
}

func customQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Question: "كم عدد سور القرآن؟", Options: []string{"110", "114", "120", "99"}, CorrectAnswer: "114", Time: 30},
		{ID: "q2", Question: "ما أول ما نزل من القرآن؟", Options: []string{"اقرأ", "الفاتحة", "المدثر", "الإخلاص"}, CorrectAnswer: "اقرأ"},
	}
}

func TestDeliverDoesNotBlockAfterWriterStops(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	send <- outboundMessage[any]{Type: "tick"}
	writerDone := make(chan struct{})
	close(writerDone)

	result := make(chan bool, 1)
	go func() {
		result <- deliver(send, writerDone, outboundMessage[any]{Type: "error"})
	}()
	select {
	case queued := <-result:
		if queued {
			t.Fatalf("message queued on a full channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("deliver blocked after the writer stopped")
	}
}

func TestForwardEventsStopsWhenWriterStops(t *testing.T) {
	events := make(chan domain.Event, 1)
	events <- domain.Event{Type: domain.EventTick}
	send := make(chan outboundMessage[any]) // nobody reads
	writerDone := make(chan struct{})
	close(writerDone)
	done := make(chan struct{})

	go forwardEvents(events, send, make(chan struct{}), writerDone, done)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("forwarder blocked after the writer stopped")
	}
}
