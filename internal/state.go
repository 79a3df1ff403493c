package internal

import "sync"

// View identifies which screen is active
type View int

const (
	ViewLogin View = iota
	ViewGroupList
	ViewChat
	ViewPolls
	ViewActivities
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewGroupList:
		return "groups"
	case ViewChat:
		return "chat"
	case ViewPolls:
		return "polls"
	case ViewActivities:
		return "activities"
	default:
		return "unknown"
	}
}

// ParseView maps a tab name to a View
func ParseView(name string) (View, bool) {
	for _, v := range []View{ViewChat, ViewPolls, ViewActivities} {
		if v.String() == name {
			return v, true
		}
	}
	return ViewLogin, false
}

// AppState is the explicit "what is on screen" state shared by components.
// Every navigation bumps the generation so late responses can detect that
// the view they were issued for is gone.
type AppState struct {
	mu         sync.RWMutex
	groupID    string
	groupName  string
	groupCode  string
	view       View
	activityID string
	generation uint64
}

// NewAppState creates a state showing the login view
func NewAppState() *AppState {
	return &AppState{view: ViewLogin}
}

// EnterGroup makes groupID the active group, showing the chat tab
func (s *AppState) EnterGroup(groupID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groupID = groupID
	s.groupName = ""
	s.groupCode = ""
	s.activityID = ""
	s.view = ViewChat
	s.generation++
	return s.generation
}

// SetGroupDetails records the active group's name and join code
func (s *AppState) SetGroupDetails(groupID string, details GroupDetails) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groupID != groupID {
		return false
	}
	s.groupName = details.Name
	s.groupCode = details.Code
	return true
}

// SetGroupCode replaces the active group's join code
func (s *AppState) SetGroupCode(groupID, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groupID == groupID {
		s.groupCode = code
	}
}

// LeaveGroup returns to the group list
func (s *AppState) LeaveGroup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groupID, s.groupName, s.groupCode, s.activityID = "", "", "", ""
	s.view = ViewGroupList
	s.generation++
}

// Reset returns to the login view
func (s *AppState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groupID, s.groupName, s.groupCode, s.activityID = "", "", "", ""
	s.view = ViewLogin
	s.generation++
}

// SwitchView changes the tab within the active group
func (s *AppState) SwitchView(v View) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != v {
		s.view = v
		s.activityID = ""
		s.generation++
	}
	return s.generation
}

// OpenActivity marks activityID as the detail being viewed
func (s *AppState) OpenActivity(activityID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = ViewActivities
	s.activityID = activityID
	s.generation++
	return s.generation
}

// CloseActivity returns to the activity list
func (s *AppState) CloseActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activityID != "" {
		s.activityID = ""
		s.generation++
	}
}

// Group returns the active group id, name and code
func (s *AppState) Group() (id, name, code string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groupID, s.groupName, s.groupCode
}

// GroupID returns the active group id
func (s *AppState) GroupID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groupID
}

// ActivityID returns the open activity id
func (s *AppState) ActivityID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activityID
}

// View returns the active view
func (s *AppState) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Generation returns the navigation counter
func (s *AppState) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// IsActiveGroup reports whether groupID is still the group on screen
func (s *AppState) IsActiveGroup(groupID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return groupID != "" && s.groupID == groupID
}

// IsActiveView reports whether groupID is on screen with view v
func (s *AppState) IsActiveView(groupID string, v View) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return groupID != "" && s.groupID == groupID && s.view == v
}

// IsActivityOpen reports whether activityID of groupID is the detail on screen
func (s *AppState) IsActivityOpen(groupID, activityID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groupID == groupID && s.view == ViewActivities && activityID != "" && s.activityID == activityID
}

// IsCurrent reports whether no navigation happened since generation gen
func (s *AppState) IsCurrent(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation == gen
}
