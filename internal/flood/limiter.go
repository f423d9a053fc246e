// Package flood throttles chat senders that post faster than the bot should answer.
package flood

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTimeout is how long a sender stays tracked without posting.
const idleTimeout = 10 * time.Minute

// Limiter allows each sender a burst of messages per minute in every chat,
// refilled continuously. A limit of zero or less disables it.
type Limiter struct {
	perMinute int
	now       func() time.Time

	mutex     sync.Mutex
	senders   map[string]*sender
	lastSweep time.Time
}

type sender struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing perMinute messages per sender and chat.
func New(perMinute int) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		now:       time.Now,
		senders:   make(map[string]*sender),
	}
}

// Allow reports whether a message from userID in chatID should be handled.
func (l *Limiter) Allow(chatID, userID string) bool {
	if l == nil || l.perMinute <= 0 {
		return true
	}

	now := l.now()
	key := chatID + ":" + userID

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.sweep(now)

	s, ok := l.senders[key]
	if !ok {
		s = &sender{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)}
		l.senders[key] = s
	}
	s.lastSeen = now

	return s.limiter.AllowN(now, 1)
}

// tracked returns the number of senders currently tracked.
func (l *Limiter) tracked() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return len(l.senders)
}

// sweep drops idle senders, at most once per idleTimeout.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleTimeout {
		return
	}
	l.lastSweep = now

	cutoff := now.Add(-idleTimeout)
	for key, s := range l.senders {
		if s.lastSeen.Before(cutoff) {
			delete(l.senders, key)
		}
	}
}
