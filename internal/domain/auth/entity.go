// internal/domain/auth/entity.go
package auth

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserType is the business type an account registered as.
type UserType string

const (
	UserTypeUser     UserType = "user"
	UserTypeCustomer UserType = "customer"
	UserTypeVendor   UserType = "vendor"
	UserTypeAdmin    UserType = "admin"
)

func (t UserType) Valid() bool {
	switch t {
	case UserTypeUser, UserTypeCustomer, UserTypeVendor, UserTypeAdmin:
		return true
	}
	return false
}

// Role carries privilege. It is derived from UserType at account creation
// and is the only field authorization checks look at.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// RoleFor maps a user type to its role.
func RoleFor(t UserType) Role {
	switch t {
	case UserTypeVendor:
		return RoleVendor
	case UserTypeAdmin:
		return RoleAdmin
	default:
		return RoleCustomer
	}
}

// Capability is a named permission checked by RequireCapability.
type Capability string

const (
	CapRecoverSessions Capability = "sessions:recover"
	CapManageProducts  Capability = "products:manage"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin:  {CapRecoverSessions, CapManageProducts},
	RoleVendor: {CapManageProducts},
}

// Can reports whether the role grants cap.
func (r Role) Can(cap Capability) bool {
	for _, c := range roleCapabilities[r] {
		if c == cap {
			return true
		}
	}
	return false
}

type Address struct {
	Street     string `json:"street,omitempty" bson:"street,omitempty"`
	City       string `json:"city,omitempty" bson:"city,omitempty"`
	State      string `json:"state,omitempty" bson:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty" bson:"postalCode,omitempty"`
	Country    string `json:"country,omitempty" bson:"country,omitempty"`
}

// LoginEntry is one element of the embedded login history.
type LoginEntry struct {
	Timestamp   time.Time  `json:"timestamp" bson:"timestamp"`
	IPAddress   string     `json:"ipAddress" bson:"ipAddress"`
	Device      string     `json:"device" bson:"device"`
	Browser     string     `json:"browser" bson:"browser"`
	OS          string     `json:"os" bson:"os"`
	Success     bool       `json:"success" bson:"success"`
	SessionID   string     `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
	Active      bool       `json:"active" bson:"active"`
	LastUpdated time.Time  `json:"lastUpdated" bson:"lastUpdated"`
	EndedAt     *time.Time `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
}

// User is stored in the users collection.
type User struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email            string             `json:"email" bson:"email"`
	Password         string             `json:"-" bson:"password"`
	UserType         UserType           `json:"userType" bson:"userType"`
	Role             Role               `json:"role" bson:"role"`
	FirstName        string             `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName         string             `json:"lastName,omitempty" bson:"lastName,omitempty"`
	Phone            string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Address          *Address           `json:"address,omitempty" bson:"address,omitempty"`
	StoreName        string             `json:"storeName,omitempty" bson:"storeName,omitempty"`
	StoreDescription string             `json:"storeDescription,omitempty" bson:"storeDescription,omitempty"`
	IsActive         bool               `json:"isActive" bson:"isActive"`
	LoginHistory     []LoginEntry       `json:"loginHistory" bson:"loginHistory"`
	HistoryVersion   int64              `json:"-" bson:"historyVersion"` // bumped on every loginHistory rewrite
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (u *User) IsVendor() bool {
	return u.UserType == UserTypeVendor
}

// FullName joins first and last name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// EffectiveRole falls back to the user type for documents written before
// the role field existed.
func (u *User) EffectiveRole() Role {
	if u.Role != "" {
		return u.Role
	}
	return RoleFor(u.UserType)
}

// LogoutMethod records how a session ended.
type LogoutMethod string

const (
	LogoutManual  LogoutMethod = "manual"
	LogoutExpired LogoutMethod = "expired"
	LogoutSystem  LogoutMethod = "system"
	LogoutForced  LogoutMethod = "forced"
)

// UserSession is stored in the usersessions collection, one document per session id.
type UserSession struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SessionID    string             `json:"sessionId" bson:"sessionId"`
	UserID       primitive.ObjectID `json:"userId" bson:"userId"`
	UserEmail    string             `json:"userEmail" bson:"userEmail"`
	UserType     UserType           `json:"userType" bson:"userType"`
	Device       string             `json:"device" bson:"device"`
	Browser      string             `json:"browser" bson:"browser"`
	OS           string             `json:"os" bson:"os"`
	IPAddress    string             `json:"ipAddress" bson:"ipAddress"`
	StartTime    time.Time          `json:"startTime" bson:"startTime"`
	LastActivity time.Time          `json:"lastActivity" bson:"lastActivity"`
	EndTime      *time.Time         `json:"endTime,omitempty" bson:"endTime,omitempty"`
	Active       bool               `json:"active" bson:"active"`
	LogoutMethod *LogoutMethod      `json:"logoutMethod" bson:"logoutMethod"`
}

// Identity is what the auth middleware attaches to a request once every
// check passed.
type Identity struct {
	UserID    primitive.ObjectID
	Email     string
	UserType  UserType
	Role      Role
	SessionID string
	StoreName string
	User      *User
}
