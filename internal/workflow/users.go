package workflow

import (
	"context"
	"errors"

	"github.com/protomem/credit-bank/internal/auth"
	"github.com/protomem/credit-bank/internal/database"
	"github.com/protomem/credit-bank/internal/metrics"
	"github.com/protomem/credit-bank/internal/model"
	"github.com/protomem/credit-bank/internal/vrules"
)

func (s *Service) Register(ctx context.Context, in model.RegisterUserInput) (model.User, error) {
	in, err := vrules.ValidateUser(in, s.now())
	if err != nil {
		return model.User{}, err
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	err = s.inTx(ctx, func(st store) error {
		id, err := st.users.Insert(ctx, database.NewInsertUserDTO(in, hashed))
		if err != nil {
			return err
		}

		user, err = st.users.Get(ctx, id)
		return err
	})
	if err != nil {
		return model.User{}, err
	}

	metrics.RecordEvent(metrics.EventUserRegistered)
	s.logger.Info("user registered", "userId", user.ID)

	return user, nil
}

// Authenticate checks credentials and returns the matching active user. Any
// mismatch is reported as ErrUnauthorized without telling which part failed.
func (s *Service) Authenticate(ctx context.Context, creds model.Credentials) (model.User, error) {
	creds, err := vrules.ValidateCredentials(creds)
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	err = s.inTx(ctx, func(st store) error {
		user, err = st.users.GetByEmail(ctx, creds.Username)
		return err
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			auth.CheckDecoy(creds.Password)
			return model.User{}, model.ErrUnauthorized
		}
		return model.User{}, err
	}

	ok, err := auth.CheckPassword(user.HashedPassword, creds.Password)
	if err != nil {
		return model.User{}, err
	}
	if !ok || !user.IsActive {
		return model.User{}, model.ErrUnauthorized
	}

	return user, nil
}

// GetUser returns a user. Callers other than the user and specialists get
// ErrNotFound.
func (s *Service) GetUser(ctx context.Context, p Principal, id model.ID) (model.User, error) {
	if !p.Privileged && !p.owns(id) {
		return model.User{}, model.NewError("user", model.ErrNotFound)
	}

	var user model.User
	err := s.inTx(ctx, func(st store) (err error) {
		user, err = st.users.Get(ctx, id)
		return err
	})
	return user, err
}

func (s *Service) DeleteUser(ctx context.Context, p Principal, id model.ID) error {
	if !p.Privileged {
		return model.NewError("user", model.ErrForbidden)
	}

	err := s.inTx(ctx, func(st store) error {
		return st.users.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("user deleted", "userId", id)

	return nil
}

// SetPrivileged grants or revokes the specialist flag. It is an operator
// action and is not exposed over HTTP.
func (s *Service) SetPrivileged(ctx context.Context, id model.ID, privileged bool) error {
	return s.inTx(ctx, func(st store) error {
		return st.users.SetPrivileged(ctx, id, privileged)
	})
}
