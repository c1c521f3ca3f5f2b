package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/protomem/credit-bank/internal/model"
	"github.com/shopspring/decimal"
)

type UserDAO struct {
	Logger  *slog.Logger
	Builder squirrel.StatementBuilderType
	ext     sqlx.ExtContext
}

func NewUserDAO(logger *slog.Logger, db *DB) *UserDAO {
	return &UserDAO{
		Logger:  logger.With("dao", "user"),
		Builder: db.Builder,
		ext:     db.DB,
	}
}

// WithTx returns a copy of the DAO that runs its statements inside tx.
func (dao *UserDAO) WithTx(tx *sqlx.Tx) *UserDAO {
	clone := *dao
	clone.ext = tx
	return &clone
}

func (dao *UserDAO) Get(ctx context.Context, id model.ID) (model.User, error) {
	return dao.getBy(ctx, "get", squirrel.Eq{"id": id})
}

func (dao *UserDAO) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return dao.getBy(ctx, "getByEmail", squirrel.Eq{"email": email})
}

func (dao *UserDAO) getBy(ctx context.Context, name string, where squirrel.Eq) (model.User, error) {
	logger := dao.Logger.With("query", name)

	query, args, err := dao.Builder.
		Select("*").
		From("users").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return model.User{}, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var user model.User
	if err := sqlx.GetContext(ctx, dao.ext, &user, query, args...); err != nil {
		if IsNoRows(err) {
			return model.User{}, model.NewError("user", model.ErrNotFound)
		}

		logger.Warn("failed query execute", "error", err)

		return model.User{}, err
	}

	logger.Debug("success query execute", "userId", user.ID)

	return user, nil
}

// FindByIDs loads the users with the given ids keyed by id.
func (dao *UserDAO) FindByIDs(ctx context.Context, ids []model.ID) (map[model.ID]model.User, error) {
	logger := dao.Logger.With("query", "findByIds")

	users := make(map[model.ID]model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	query, args, err := dao.Builder.
		Select("*").
		From("users").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}

	logger.Debug("build query", "sql", query, "args", args)

	var rows []model.User
	if err := sqlx.SelectContext(ctx, dao.ext, &rows, query, args...); err != nil {
		logger.Warn("failed query execute", "error", err)

		return nil, err
	}

	for _, user := range rows {
		users[user.ID] = user
	}

	logger.Debug("success query execute", "countUsers", len(users))

	return users, nil
}

type InsertUserDTO struct {
	Email          string
	HashedPassword string
	IsSpec         bool

	FirstName  string
	SecondName string
	LastName   string
	Birthday   model.Date

	PassportSerial int
	PassportNumber int
	GottenBy       string
	INN            string

	RegistrationAddress string
	CurrentJob          string
	PerMonthProfit      decimal.Decimal
	Phone               string
	FamilyStatus        string
}

func NewInsertUserDTO(in model.RegisterUserInput, hashedPassword string) InsertUserDTO {
	return InsertUserDTO{
		Email:               in.Email,
		HashedPassword:      hashedPassword,
		FirstName:           in.FirstName,
		SecondName:          in.SecondName,
		LastName:            in.LastName,
		Birthday:            in.Birthday,
		PassportSerial:      in.PassportSerial,
		PassportNumber:      in.PassportNumber,
		GottenBy:            in.GottenBy,
		INN:                 in.INN,
		RegistrationAddress: in.RegistrationAddress,
		CurrentJob:          in.CurrentJob,
		PerMonthProfit:      in.PerMonthProfit,
		Phone:               in.Phone,
		FamilyStatus:        in.FamilyStatus,
	}
}

func (dao *UserDAO) Insert(ctx context.Context, dto InsertUserDTO) (model.ID, error) {
	logger := dao.Logger.With("query", "insert")

	query, args, err := dao.Builder.
		Insert("users").
		Columns(
			"email", "hashed_password", "is_spec",
			"first_name", "second_name", "last_name", "birthday",
			"passport_serial", "passport_number", "gotten_by", "inn",
			"registration_address", "current_job", "per_month_profit", "phone", "family_status",
		).
		Values(
			dto.Email, dto.HashedPassword, dto.IsSpec,
			dto.FirstName, dto.SecondName, dto.LastName, dto.Birthday,
			dto.PassportSerial, dto.PassportNumber, dto.GottenBy, dto.INN,
			dto.RegistrationAddress, dto.CurrentJob, dto.PerMonthProfit, dto.Phone, dto.FamilyStatus,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, err
	}

	logger.Debug("build query", "sql", query, "args", len(args))

	var id model.ID
	row := dao.ext.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&id); err != nil {
		logger.Warn("failed query execute", "error", err)

		if IsUniqueViolation(err) {
			return 0, model.NewError("user", model.ErrExists)
		}
		if verr := InvalidValue(err); verr != nil {
			return 0, verr
		}

		return 0, err
	}

	logger.Debug("success query execute", "insertId", id)

	return id, nil
}

func (dao *UserDAO) SetPrivileged(ctx context.Context, id model.ID, privileged bool) error {
	logger := dao.Logger.With("query", "setPrivileged")

	query, args, err := dao.Builder.
		Update("users").
		SetMap(map[string]any{
			"is_spec":    privileged,
			"updated_at": time.Now().UTC(),
		}).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	logger.Debug("build query", "sql", query, "args", args)

	res, err := dao.ext.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Warn("failed query execute", "error", err)

		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.NewError("user", model.ErrNotFound)
	}

	logger.Debug("success query execute", "updateId", id)

	return nil
}

// Delete removes a user. It fails with ErrHasDependents while orders or
// credits still reference the user.
func (dao *UserDAO) Delete(ctx context.Context, id model.ID) error {
	logger := dao.Logger.With("query", "delete")

	query, args, err := dao.Builder.
		Delete("users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	logger.Debug("build query", "sql", query, "args", args)

	res, err := dao.ext.ExecContext(ctx, query, args...)
	if err != nil {
		logger.Warn("failed query execute", "error", err)

		if IsForeignKeyViolation(err) {
			return model.NewError("user", model.ErrHasDependents)
		}

		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.NewError("user", model.ErrNotFound)
	}

	logger.Debug("success query execute", "deleteId", id)

	return nil
}
