package router

import (
	"errors"
	"regexp"

	"github.com/skulebot/core/internal/models"
)

// HandlerFunc processes one update inside its transaction.
type HandlerFunc func(*Context) error

// ErrStale signals that the pressed button refers to an entity that no
// longer exists. The dispatcher replaces the dead screen instead of
// reporting a failure.
var ErrStale = errors.New("stale callback reference")

// Route binds a callback-data pattern to a handler. Patterns are matched
// against the full callback data, query part included, in registration
// order.
type Route struct {
	re      *regexp.Regexp
	handler HandlerFunc
	roles   []models.Role
}

// On builds a route anyone may trigger.
func On(pattern string, handler HandlerFunc) Route {
	return Route{re: regexp.MustCompile(pattern), handler: handler}
}

// Restricted builds a route only the listed roles may trigger. A press by
// anyone else is acknowledged silently and goes no further.
func Restricted(pattern string, handler HandlerFunc, roles ...models.Role) Route {
	return Route{re: regexp.MustCompile(pattern), handler: handler, roles: roles}
}

// Routes is an ordered route table; the first matching route wins.
type Routes []Route

func (rs Routes) match(data string) (Route, bool) {
	for _, r := range rs {
		if r.re.MatchString(data) {
			return r, true
		}
	}
	return Route{}, false
}

// State is one step of a conversation: callback routes active in that step
// plus an optional handler for typed or uploaded messages.
type State struct {
	Callbacks Routes
	OnMessage HandlerFunc
}

// Conversation is a named multi-step flow. Its current state is persisted
// per user and chat, so a restart resumes flows where they left off.
// Handlers move between states with Context.SetState and leave with
// Context.EndConversation.
type Conversation struct {
	Name   string
	States map[string]State
}
