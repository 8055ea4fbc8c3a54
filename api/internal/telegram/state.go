package telegram

import (
	"sync"
	"time"

	"math-bot/api/internal/equation"
)

const defaultSessionTTL = 5 * time.Minute

// sessionKey: сообщение с клавиатурой.
type sessionKey struct {
	ChatID    int64
	MessageID int
}

type sessionKind int

const (
	kindCalc sessionKind = iota + 1
	kindEquation
)

type session struct {
	OwnerID int64
	Kind    sessionKind

	// калькулятор и ручной режим уравнения
	Expression string

	// мастер уравнения
	Shape  equation.Shape
	Vars   equation.Variables
	Manual bool
	Photo  bool // сообщение: картинка, править через EditMessageMedia

	expires time.Time
}

// sessions живут session_ttl с последнего нажатия, как таймаут у клавиатуры.
type sessions struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[sessionKey]*session
	now func() time.Time
}

func newSessions(ttl time.Duration) *sessions {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &sessions{ttl: ttl, m: make(map[sessionKey]*session), now: time.Now}
}

func (s *sessions) put(k sessionKey, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.expires = s.now().Add(s.ttl)
	s.m[k] = sess
}

// touch returns the live session and extends its deadline.
func (s *sessions) touch(k sessionKey) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[k]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.After(sess.expires) {
		delete(s.m, k)
		return nil, false
	}
	sess.expires = now.Add(s.ttl)
	return sess, true
}

func (s *sessions) peek(k sessionKey) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[k]
	if !ok || s.now().After(sess.expires) {
		return nil, false
	}
	return sess, true
}

// move перевешивает сессию на новое сообщение (картинку нельзя превратить в текст).
func (s *sessions) move(from, to sessionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.m[from]; ok {
		delete(s.m, from)
		sess.expires = s.now().Add(s.ttl)
		s.m[to] = sess
	}
}

func (s *sessions) delete(k sessionKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, k)
}

func (s *sessions) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, sess := range s.m {
		if now.After(sess.expires) {
			delete(s.m, k)
			n++
		}
	}
	return n
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// inputKey: кто именно должен прислать текст.
type inputKey struct {
	ChatID int64
	UserID int64
}

// pendingInput: при пустом Var ждём уравнение целиком (ручной режим).
type pendingInput struct {
	Session sessionKey
	Var     string
}
