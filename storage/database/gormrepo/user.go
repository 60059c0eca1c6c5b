package gormrepo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/models"
)

var userOrderings = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"is_active":  "is_active",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"last_login": "last_login",
}

type userRepository struct {
	store *database.Store
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(store *database.Store) *userRepository {
	return &userRepository{store: store}
}

func joinRoles(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	return "," + strings.Join(roles, ",") + ","
}

func splitRoles(roles string) []string {
	parts := strings.Split(strings.Trim(roles, ","), ",")
	out := make([]string, 0, len(parts))
	for _, r := range parts {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

func (repo userRepository) boil(usr user.User) models.User {
	u := models.User{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     strPtr(usr.Username),
		Email:        strPtr(usr.Email),
		IsActive:     usr.IsActive,
		Roles:        joinRoles(usr.Roles),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
	if !usr.LastLogin.IsZero() {
		ll := usr.LastLogin.UTC()
		u.LastLogin = &ll
	}
	return u
}

func (repo userRepository) unboil(u models.User) user.User {
	usr := user.User{
		ID:           u.ID,
		Name:         u.Name,
		Username:     strVal(u.Username),
		Email:        strVal(u.Email),
		IsActive:     u.IsActive,
		Roles:        splitRoles(u.Roles),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.LastLogin != nil {
		usr.LastLogin = *u.LastLogin
	}
	return usr
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	var exclIDs []string
	for _, u := range excludedUsers {
		exclIDs = append(exclIDs, u.ID)
	}

	check := func(col, val string, errExists error) error {
		if val == "" {
			return nil
		}
		q := repo.store.Conn(ctx).Model(&models.User{}).Where(col+" = ?", val)
		if len(exclIDs) > 0 {
			q = q.Where("id NOT IN ?", exclIDs)
		}
		var cnt int64
		if err := q.Count(&cnt).Error; err != nil {
			return core.NewStorageError(err, "checking user uniqueness")
		}
		if cnt > 0 {
			return errExists
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	u := repo.boil(usr)
	if err := repo.store.Conn(ctx).Create(&u).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, core.NewStorageError(err, "inserting user")
	}
	return repo.unboil(u), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	q := repo.store.Conn(ctx).Model(&models.User{})

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(username) LIKE ? OR LOWER(email) LIKE ?", val, val, val)
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			cond := repo.store.Conn(ctx)
			for i, role := range filter.Roles {
				if i == 0 {
					cond = cond.Where("roles LIKE ?", "%,"+role+"%")
				} else {
					cond = cond.Or("roles LIKE ?", "%,"+role+"%")
				}
			}
			q = q.Where(cond)
		}
		if filter.IsActive != nil {
			q = q.Where("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			q = q.Where("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			q = q.Where("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var rows []models.User
	if err := orderBy(q, ordering, userOrderings, "created_at DESC").Find(&rows).Error; err != nil {
		return nil, core.NewStorageError(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, u := range rows {
		users = append(users, repo.unboil(u))
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		u models.User
		q *gorm.DB
	)
	conn := repo.store.Conn(ctx)

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		q = conn.Where("id = ?", filter.ID)
	case filter.Username != "":
		q = conn.Where("username = ?", filter.Username)
	case filter.Email != "":
		q = conn.Where("email = ?", filter.Email)
	case len(filter.UsernameOrEmail) > 0:
		var email string
		uname := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		if uname == "" {
			return user.User{}, user.ErrNotFound
		}
		q = conn.Where("username = ? OR email = ?", uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}

	if err := q.Take(&u).Error; err != nil {
		return user.User{}, trapNotFound(err, user.ErrNotFound, "finding user")
	}
	return repo.unboil(u), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	u := repo.boil(usr)
	// Save writes every column, zero values included
	if err := repo.store.Conn(ctx).Save(&u).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, core.NewStorageError(err, "updating user")
	}
	return repo.unboil(u), nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := repo.store.Conn(ctx).Where("id IN ?", ids).Delete(&models.User{})
	if res.Error != nil {
		return 0, core.NewStorageError(res.Error, "deleting users")
	}
	return int(res.RowsAffected), nil
}
