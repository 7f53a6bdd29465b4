// internal/domain/auth/dto.go
package auth

import (
	"sort"
	"time"
)

// RegisterRequest for account registration
type RegisterRequest struct {
	Email            string   `json:"email" binding:"required,email"`
	Password         string   `json:"password" binding:"required,min=5"`
	Name             string   `json:"name"`
	FirstName        string   `json:"firstName"`
	LastName         string   `json:"lastName"`
	UserType         UserType `json:"userType"`
	Phone            string   `json:"phone"`
	Address          *Address `json:"address"`
	StoreName        string   `json:"storeName"`
	StoreDescription string   `json:"storeDescription"`
	DeviceInfo       string   `json:"deviceInfo"`
	IPAddress        string   `json:"-"`
	UserAgent        string   `json:"-"`
}

// LoginRequest for login. UserType is optional and selects the lookup strategy.
type LoginRequest struct {
	Email      string   `json:"email" binding:"required"`
	Password   string   `json:"password" binding:"required"`
	UserType   UserType `json:"userType"`
	DeviceInfo string   `json:"deviceInfo"`
	Emergency  bool     `json:"emergency"`
	IPAddress  string   `json:"-"`
	UserAgent  string   `json:"-"`
}

// Device returns the device string recorded in the ledger.
func (r *LoginRequest) Device() string {
	if r.DeviceInfo != "" {
		return r.DeviceInfo
	}
	return r.UserAgent
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string   `json:"token"`
	User      UserInfo `json:"user"`
	SessionID string   `json:"sessionId"`
}

// UserInfo is the public view of a user. StoreName is only ever set for vendors.
type UserInfo struct {
	ID               string       `json:"id"`
	Email            string       `json:"email"`
	UserType         UserType     `json:"userType"`
	Role             Role         `json:"role"`
	FirstName        string       `json:"firstName,omitempty"`
	LastName         string       `json:"lastName,omitempty"`
	Phone            string       `json:"phone,omitempty"`
	Address          *Address     `json:"address,omitempty"`
	StoreName        string       `json:"storeName,omitempty"`
	StoreDescription string       `json:"storeDescription,omitempty"`
	IsActive         bool         `json:"isActive"`
	LoginHistory     []LoginEntry `json:"loginHistory,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// ResponseHistoryLimit is how many login history entries a response carries.
const ResponseHistoryLimit = 5

// NewUserInfo builds the public view, trimming history to the most recent entries.
func NewUserInfo(u *User) UserInfo {
	info := UserInfo{
		ID:        u.ID.Hex(),
		Email:     u.Email,
		UserType:  u.UserType,
		Role:      u.EffectiveRole(),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Address:   u.Address,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
	if u.IsVendor() {
		info.StoreName = u.StoreName
		info.StoreDescription = u.StoreDescription
	}

	history := u.LoginHistory
	if len(history) > ResponseHistoryLimit {
		history = history[len(history)-ResponseHistoryLimit:]
	}
	info.LoginHistory = append([]LoginEntry(nil), history...)
	return info
}

// SessionSummary is one row of GET /api/auth/sessions.
type SessionSummary struct {
	SessionID   string     `json:"sessionId"`
	Timestamp   time.Time  `json:"timestamp"`
	IPAddress   string     `json:"ipAddress"`
	Device      string     `json:"device"`
	Browser     string     `json:"browser"`
	OS          string     `json:"os"`
	Active      bool       `json:"active"`
	LastUpdated time.Time  `json:"lastUpdated"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	Current     bool       `json:"current"`
}

// SessionStats aggregates a user's UserSession rows.
type SessionStats struct {
	Total          int            `json:"total"`
	Active         int            `json:"active"`
	Ended          int            `json:"ended"`
	ByBrowser      map[string]int `json:"byBrowser"`
	ByOS           map[string]int `json:"byOS"`
	ByLogoutMethod map[string]int `json:"byLogoutMethod"`
}

// NewSessionStats counts sessions by state, browser, OS and logout method.
func NewSessionStats(sessions []UserSession) SessionStats {
	stats := SessionStats{
		ByBrowser:      map[string]int{},
		ByOS:           map[string]int{},
		ByLogoutMethod: map[string]int{},
	}
	for _, s := range sessions {
		stats.Total++
		if s.Active {
			stats.Active++
		} else {
			stats.Ended++
		}
		stats.ByBrowser[s.Browser]++
		stats.ByOS[s.OS]++
		if s.LogoutMethod != nil {
			stats.ByLogoutMethod[string(*s.LogoutMethod)]++
		}
	}
	return stats
}

// SortNewestFirst orders sessions by start time, latest first.
func SortNewestFirst(sessions []UserSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
}

// UpdateProfileRequest for profile updates. Store fields are ignored for non-vendors.
type UpdateProfileRequest struct {
	FirstName        *string  `json:"firstName"`
	LastName         *string  `json:"lastName"`
	Phone            *string  `json:"phone"`
	Address          *Address `json:"address"`
	StoreName        *string  `json:"storeName"`
	StoreDescription *string  `json:"storeDescription"`
}

// ChangePasswordRequest for password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=5"`
}

// RecoverSessionsRequest selects one user by id or email.
type RecoverSessionsRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// RecoverResult reports a single-user reconciliation.
type RecoverResult struct {
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	AddedSessions int    `json:"addedSessions"`
	EndedSessions int    `json:"endedSessions"`
}
