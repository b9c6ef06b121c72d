package room

import (
	"errors"
	"fmt"
	"time"

	"github.com/bunkmate-app/bunkmate/backend/internal/model"
	"github.com/bunkmate-app/bunkmate/backend/internal/store"
)

var (
	// ErrNameTaken indicates the display name is already registered in the room.
	ErrNameTaken = errors.New("room: name already taken in this room")
	// ErrUnknownUser indicates a login attempt for an id the store has never seen.
	ErrUnknownUser = errors.New("room: unknown user")
)

const avatarURLFormat = "https://api.dicebear.com/7.x/avataaars/svg?seed=%s&backgroundColor=b6e3f4,c0aede,d1d4f9"

// Registry creates and looks up device-local identities ahead of a session.
type Registry struct {
	store *store.Store
	ids   IDProvider
	now   func() time.Time
}

// NewRegistry constructs the identity registry.
func NewRegistry(repo *store.Store, ids IDProvider, clock func() time.Time) (*Registry, error) {
	if repo == nil {
		return nil, fmt.Errorf("room: store is required")
	}
	if ids == nil {
		ids = NewUUIDProvider()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Registry{store: repo, ids: ids, now: clock}, nil
}

// Register creates a new identity in a room. Display names are unique per
// room, compared case-insensitively. The generated avatar seed mixes name
// and id so two users with the same name still get distinct avatars.
func (r *Registry) Register(name, classCode string, targetDaysPerWeek int) (model.User, error) {
	code, err := model.NewClassCode(classCode)
	if err != nil {
		return model.User{}, err
	}

	taken, err := r.store.NameExists(name, code.String())
	if err != nil {
		return model.User{}, err
	}
	if taken {
		return model.User{}, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	rawID, err := r.ids.NewID()
	if err != nil {
		return model.User{}, err
	}
	userID := "u_" + rawID

	if targetDaysPerWeek < 1 || targetDaysPerWeek > 7 {
		targetDaysPerWeek = 4
	}

	user := model.User{
		ID:                userID,
		Name:              name,
		Avatar:            fmt.Sprintf(avatarURLFormat, name+"_"+userID),
		ClassCode:         code.String(),
		TargetDaysPerWeek: targetDaysPerWeek,
		LastSeen:          r.now().UnixMilli(),
		IsSelf:            true,
	}
	if err := r.store.SaveUser(user); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// EnsureIdentity resumes the identity registered on this device under a
// display name in a room, registering a fresh one when none exists. This is
// the daemon startup path: the same config always resolves to the same
// identity. Only locally-registered records qualify, so a name currently
// held by a remote peer fails registration instead of hijacking their id.
func (r *Registry) EnsureIdentity(name, classCode string, targetDaysPerWeek int) (model.User, error) {
	code, err := model.NewClassCode(classCode)
	if err != nil {
		return model.User{}, err
	}
	user, found, err := r.store.UserByName(name, code.String())
	if err != nil {
		return model.User{}, err
	}
	if found {
		user.IsSelf = true
		return user, nil
	}
	return r.Register(name, classCode, targetDaysPerWeek)
}

// Login resumes an identity previously registered on this device.
func (r *Registry) Login(userID string) (model.User, error) {
	id, err := model.NewUserID(userID)
	if err != nil {
		return model.User{}, err
	}
	user, found, err := r.store.UserByID(id.String())
	if err != nil {
		return model.User{}, err
	}
	if !found {
		return model.User{}, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	user.IsSelf = true
	return user, nil
}
