//go:generate go run go.uber.org/mock/mockgen -source=user_service.go -destination=../mocks/mock_user_service.go -package=mocks
package services

import (
	"github.com/samber/lo"

	"pairchat/contract"
	"pairchat/domain"
	"pairchat/repositories"
)

type IUserService interface {
	List() ([]UserWithPresence, error)
	Get(id string) (UserWithPresence, error)
}

// UserWithPresence is a stored user enriched with the live presence
// view, as served by the contact listing.
type UserWithPresence struct {
	domain.User
	Online bool `json:"online"`
}

type UserService struct {
	users    repositories.IUserRepository
	presence contract.IPresence
}

func NewUserService(users repositories.IUserRepository, presence contract.IPresence) *UserService {
	return &UserService{users: users, presence: presence}
}

func (s *UserService) List() ([]UserWithPresence, error) {
	users, err := s.users.List()
	if err != nil {
		return nil, err
	}

	snapshot := s.presence.Snapshot()
	return lo.Map(users, func(u domain.User, _ int) UserWithPresence {
		return enrich(u, snapshot)
	}), nil
}

func (s *UserService) Get(id string) (UserWithPresence, error) {
	user, err := s.users.GetByID(id)
	if err != nil {
		return UserWithPresence{}, err
	}
	return enrich(user, s.presence.Snapshot()), nil
}

// enrich overlays the live presence snapshot on the stored record. For
// an online user the snapshot clears LastSeen; for an offline user it
// carries the authoritative disconnect time.
func enrich(u domain.User, snapshot map[string]domain.Presence) UserWithPresence {
	p, ok := snapshot[u.ID]
	if !ok {
		return UserWithPresence{User: u, Online: false}
	}
	u.LastSeen = p.LastSeen
	return UserWithPresence{User: u, Online: p.Online}
}
