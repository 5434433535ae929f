// Package navigation owns the tab and route state machine that decides which
// view is shown and where "back" goes.
package navigation

import (
	"context"
	"fmt"
)

// Tab is one of the five top-level destinations.
type Tab string

const (
	TabHome     Tab = "home"
	TabLearn    Tab = "learn"
	TabData     Tab = "data"
	TabProgress Tab = "progress"
	TabMore     Tab = "more"
)

// Tabs lists the tab bar in display order.
var Tabs = []Tab{TabHome, TabLearn, TabData, TabProgress, TabMore}

// Route identifies a view. Tab names are themselves routes; everything else
// is a nested route reached from within a tab.
type Route string

const (
	RouteHome     Route = "home"
	RouteLearn    Route = "learn"
	RouteData     Route = "data"
	RouteProgress Route = "progress"
	RouteMore     Route = "more"

	RouteQuizzes       Route = "quizzes"
	RouteQuiz          Route = "quiz"
	RouteQuizQuestion  Route = "quiz-question"
	RouteQuizResult    Route = "quiz-result"
	RouteGlossary      Route = "glossary"
	RouteEdu           Route = "edu"
	RouteAchievements  Route = "achievements"
	RouteDocuments     Route = "documents"
	RouteLiterature    Route = "literature"
	RouteDashboard     Route = "dashboard"
	RouteFAQ           Route = "faq"
	RouteSupport       Route = "support"
	RouteInstructions  Route = "instructions"
	RouteAnnouncements Route = "announcements"
	RouteBroadcasts    Route = "broadcasts"
	RouteProfile       Route = "profile"
)

// fallbackParent maps each nested route to its logical tab. GoBack consults
// it when parentTab was lost (deep link straight into a nested route).
var fallbackParent = map[Route]Tab{
	RouteQuizzes:       TabLearn,
	RouteQuiz:          TabLearn,
	RouteQuizQuestion:  TabLearn,
	RouteQuizResult:    TabLearn,
	RouteGlossary:      TabLearn,
	RouteEdu:           TabLearn,
	RouteDocuments:     TabData,
	RouteLiterature:    TabData,
	RouteDashboard:     TabData,
	RouteAchievements:  TabProgress,
	RouteFAQ:           TabMore,
	RouteSupport:       TabMore,
	RouteInstructions:  TabMore,
	RouteAnnouncements: TabMore,
	RouteBroadcasts:    TabMore,
	RouteProfile:       TabMore,
}

// Routes lists every valid route.
var Routes = func() []Route {
	rs := make([]Route, 0, len(Tabs)+len(fallbackParent))
	for _, t := range Tabs {
		rs = append(rs, Route(t))
	}
	for r := range fallbackParent {
		rs = append(rs, r)
	}
	return rs
}()

// IsTab reports whether the route is one of the five tab names.
func IsTab(r Route) bool {
	for _, t := range Tabs {
		if Route(t) == r {
			return true
		}
	}
	return false
}

// Parse maps a raw route string (callback data, deep-link payload) to a
// Route. Unrecognized strings report ok=false; the machine treats them as a
// redirect home, not an error.
func Parse(s string) (Route, bool) {
	if _, ok := fallbackParent[Route(s)]; ok {
		return Route(s), true
	}
	if IsTab(Route(s)) {
		return Route(s), true
	}
	return "", false
}

// Params carries renderer arguments, e.g. the quiz id for the quiz route.
type Params map[string]string

// RenderFunc draws a view. Renderers may load content asynchronously, but
// the navigation transition itself completes before they run.
type RenderFunc func(ctx context.Context, params Params)

// Listener receives transition side effects. The bot backs this with the
// host bridge (haptics, deep-link fragment); tests use NopListener.
type Listener interface {
	// TransitionStarted fires before the renderer, mirroring the original
	// client's scroll-reset-then-render order.
	TransitionStarted(route Route)
	// FragmentChanged reports the deep-link fragment for the new route.
	FragmentChanged(fragment string)
	// TabPersisted asks the host to remember the last active tab.
	TabPersisted(tab Tab)
}

// NopListener ignores all side effects.
type NopListener struct{}

func (NopListener) TransitionStarted(Route) {}
func (NopListener) FragmentChanged(string)  {}
func (NopListener) TabPersisted(Tab)        {}

// Machine is the per-user navigation state machine.
type Machine struct {
	activeTab    Tab
	currentRoute Route
	parentTab    Tab // "" while on a tab; set once per nested excursion

	renderers map[Route]RenderFunc
	listener  Listener
}

// NewMachine builds a machine with a complete route->renderer table. Every
// known route must be wired; a missing renderer is a programming error
// caught at startup rather than a silent fall-through at run time.
func NewMachine(renderers map[Route]RenderFunc, listener Listener) (*Machine, error) {
	for _, r := range Routes {
		if renderers[r] == nil {
			return nil, fmt.Errorf("no renderer wired for route %q", r)
		}
	}
	if listener == nil {
		listener = NopListener{}
	}
	return &Machine{
		activeTab:    TabHome,
		currentRoute: RouteHome,
		renderers:    renderers,
		listener:     listener,
	}, nil
}

// ActiveTab returns the current top-level tab.
func (m *Machine) ActiveTab() Tab { return m.activeTab }

// CurrentRoute returns the route being displayed.
func (m *Machine) CurrentRoute() Route { return m.currentRoute }

// ParentTab returns the tab "back" returns to from a nested route, or ""
// when on a tab.
func (m *Machine) ParentTab() Tab { return m.parentTab }

// Fragment returns the deep-link encoding of the current route.
func (m *Machine) Fragment() string { return string(m.currentRoute) }

// SwitchTab activates a top-level tab. This is the only transition that
// clears parentTab. An unknown tab name (forged callback data) redirects
// home, like any other unknown route.
func (m *Machine) SwitchTab(ctx context.Context, tab Tab) {
	if !IsTab(Route(tab)) {
		tab = TabHome
	}
	m.activeTab = tab
	m.currentRoute = Route(tab)
	m.parentTab = ""

	m.listener.TabPersisted(tab)
	m.render(ctx, m.currentRoute, nil)
}

// NavigateTo moves to a route. Tab names delegate to SwitchTab; unknown
// routes silently redirect home.
func (m *Machine) NavigateTo(ctx context.Context, route Route, params Params) {
	if IsTab(route) {
		m.SwitchTab(ctx, Tab(route))
		return
	}
	if _, known := fallbackParent[route]; !known {
		m.SwitchTab(ctx, TabHome)
		return
	}

	m.currentRoute = route
	// Only the first nested hop of an excursion records the origin tab;
	// deeper hops keep it.
	if m.parentTab == "" {
		m.parentTab = m.activeTab
	}
	m.render(ctx, route, params)
}

// Restore re-enters the route encoded in a deep-link fragment. Unlike
// NavigateTo it does not record a parent tab: there was no excursion, so
// GoBack falls through to the static parent table instead.
func (m *Machine) Restore(ctx context.Context, fragment string) {
	route, ok := Parse(fragment)
	if !ok {
		m.SwitchTab(ctx, TabHome)
		return
	}
	if IsTab(route) {
		m.SwitchTab(ctx, Tab(route))
		return
	}
	m.currentRoute = route
	if tab, ok := fallbackParent[route]; ok {
		m.activeTab = tab
	}
	m.render(ctx, route, nil)
}

// GoBack leaves the current view. The quiz-taking flow always returns to the
// quiz list; other nested routes return to the tab they were entered from,
// or to their logical parent tab when that is unknown.
func (m *Machine) GoBack(ctx context.Context) {
	if m.inQuizFlow() {
		m.NavigateTo(ctx, RouteQuizzes, nil)
		return
	}
	if m.parentTab != "" {
		m.SwitchTab(ctx, m.parentTab)
		return
	}
	if tab, ok := fallbackParent[m.currentRoute]; ok {
		m.SwitchTab(ctx, tab)
		return
	}
	m.SwitchTab(ctx, TabHome)
}

// inQuizFlow covers the question and result views only. Back from the quiz
// intro behaves like any nested route and returns to the originating tab.
func (m *Machine) inQuizFlow() bool {
	switch m.currentRoute {
	case RouteQuizQuestion, RouteQuizResult:
		return true
	}
	return false
}

func (m *Machine) render(ctx context.Context, route Route, params Params) {
	m.listener.TransitionStarted(route)
	m.listener.FragmentChanged(string(route))
	m.renderers[route](ctx, params)
}
