package bot

import (
	"strings"
	"sync"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/expedition-bot/internal/models"
)

type step int

const (
	stepIdle step = iota
	stepSurname
	stepPassword
	stepVehicle
	stepWaybill
	stepRoute
	stepQuantity
	stepConfirm
)

func (s step) String() string {
	switch s {
	case stepSurname:
		return "surname"
	case stepPassword:
		return "password"
	case stepVehicle:
		return "vehicle"
	case stepWaybill:
		return "waybill"
	case stepRoute:
		return "route"
	case stepQuantity:
		return "quantity"
	case stepConfirm:
		return "confirm"
	}
	return "menu"
}

// draft — рейс, собираемый в диалоге.
type draft struct {
	vehicle  *models.Vehicle
	waybill  string
	route    *models.Route
	quantity int
}

type session struct {
	step    step
	surname string
	draft   draft
	// списки, показанные на клавиатуре, чтобы сопоставить нажатую кнопку
	vehicles []models.Vehicle
	routes   []models.Route
}

// sessions — состояние диалогов по чатам.
type sessions struct {
	mu sync.Mutex
	m  map[int64]*session
}

func newSessions() *sessions { return &sessions{m: make(map[int64]*session)} }

// get возвращает копию, чтобы обработчик не держал общий указатель.
func (s *sessions) get(chatID int64) session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.m[chatID]; ok {
		return *cur
	}
	return session{}
}

func (s *sessions) set(chatID int64, st session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.step == stepIdle {
		delete(s.m, chatID)
		return
	}
	s.m[chatID] = &st
}

func (s *sessions) reset(chatID int64) { s.set(chatID, session{}) }

// chatLimiter не даёт двум апдейтам одного чата обрабатываться одновременно.
type chatLimiter struct {
	mu   sync.Mutex
	byID map[int64]*sync.Mutex
}

func newChatLimiter() *chatLimiter {
	return &chatLimiter{byID: make(map[int64]*sync.Mutex)}
}

func (l *chatLimiter) lock(chatID int64) func() {
	l.mu.Lock()
	m, ok := l.byID[chatID]
	if !ok {
		m = &sync.Mutex{}
		l.byID[chatID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return func() { m.Unlock() }
}

const chatQueueSize = 32

// chatQueues — своя очередь и свой обработчик на каждый чат с апдейтами.
// Обработчик завершается, как только очередь чата опустела.
type chatQueues struct {
	mu     sync.Mutex
	byID   map[int64]chan *tgbotapi.Message
	wg     sync.WaitGroup
	handle func(*tgbotapi.Message)
}

func newChatQueues(handle func(*tgbotapi.Message)) *chatQueues {
	return &chatQueues{byID: make(map[int64]chan *tgbotapi.Message), handle: handle}
}

// push ставит апдейт в очередь чата; false — очередь переполнена.
func (q *chatQueues) push(msg *tgbotapi.Message) bool {
	chatID := msg.Chat.ID
	q.mu.Lock()
	defer q.mu.Unlock()
	ch, ok := q.byID[chatID]
	if !ok {
		ch = make(chan *tgbotapi.Message, chatQueueSize)
		q.byID[chatID] = ch
		q.wg.Add(1)
		go q.drain(chatID, ch)
	}
	select {
	case ch <- msg:
		return true
	default:
		return false
	}
}

func (q *chatQueues) drain(chatID int64, ch chan *tgbotapi.Message) {
	defer q.wg.Done()
	for {
		q.handle(<-ch)

		q.mu.Lock()
		if len(ch) == 0 {
			delete(q.byID, chatID)
			q.mu.Unlock()
			return
		}
		q.mu.Unlock()
	}
}

func (q *chatQueues) wait() { q.wg.Wait() }

func isCancelText(s string) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	return s == "отмена" || s == "/cancel" || s == "cancel" || s == strings.ToLower(btnAbort)
}

// containsWord — needle встречается в text и не продолжается буквой или цифрой.
func containsWord(text, needle string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], needle)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(needle)
		before := start == 0 || !isWordRune(lastRune(text[:start]))
		after := end == len(text) || !isWordRune([]rune(text[end:])[0])
		if before && after {
			return true
		}
		i = start + 1
	}
}

func lastRune(s string) rune {
	r := []rune(s)
	return r[len(r)-1]
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
