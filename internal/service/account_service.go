package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"Pitch_Board/internal/metrics"
	"Pitch_Board/internal/model"
	"Pitch_Board/internal/pkg"
	"Pitch_Board/internal/repository/database"
	"Pitch_Board/internal/repository/redis"
)

// SessionStore 服务端会话，生产实现是 redis.SessionRepository
type SessionStore interface {
	Save(ctx context.Context, userID uint64, sessionID string) error
	Get(ctx context.Context, userID uint64) (string, error)
	Extend(ctx context.Context, userID uint64) error
	DeleteIfMatch(ctx context.Context, userID uint64, sessionID string) error
}

// Mailer 可选；nil 表示不发欢迎邮件
type Mailer interface {
	SendWelcome(to, name string) error
}

type AccountService struct {
	users    *database.UserRepository
	sessions SessionStore
	tokens   *pkg.TokenIssuer
	mailer   Mailer
	metrics  *metrics.Metrics
	log      *logrus.Logger
	validate *validator.Validate
	hashCost int
}

func NewAccountService(users *database.UserRepository, sessions SessionStore, tokens *pkg.TokenIssuer, mailer Mailer, m *metrics.Metrics, log *logrus.Logger) *AccountService {
	return &AccountService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		mailer:   mailer,
		metrics:  m,
		log:      log,
		validate: validator.New(),
		hashCost: bcrypt.DefaultCost,
	}
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
}

// AuthResult 注册/登录的返回：用户 + token 对
type AuthResult struct {
	User   *model.User
	Tokens *pkg.Pair
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validateRegister(in); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hash),
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	// 会话写入失败时用户一并回滚
	var tokens *pkg.Pair
	err = s.users.CreateWith(ctx, user, func(u *model.User) error {
		pair, err := s.openSession(ctx, u.ID)
		tokens = pair
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发注册撞上唯一索引，重新判断是哪个字段
			if uerr := s.checkUnique(ctx, in.Username, in.Email); uerr != nil {
				return nil, uerr
			}
			return nil, invalid(NonFieldErrors, "A user with these credentials already exists.")
		}
		return nil, err
	}

	s.metrics.UserRegistered()
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	s.sendWelcome(user)

	return &AuthResult{User: user, Tokens: tokens}, nil
}

func (s *AccountService) validateRegister(in RegisterInput) error {
	v := &ValidationError{}
	switch {
	case in.Username == "":
		v.Add("username", "This field may not be blank.")
	case len([]rune(in.Username)) > UsernameMaxLen:
		v.Add("username", "Ensure this field has no more than 150 characters.")
	case !validUsername(in.Username):
		v.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
	if in.Email == "" {
		v.Add("email", "This field may not be blank.")
	} else if s.validate.Var(in.Email, "email") != nil {
		v.Add("email", "Enter a valid email address.")
	}
	if in.Password == "" {
		v.Add("password", "This field may not be blank.")
	}
	if in.PasswordConfirm == "" {
		v.Add("password_confirm", "This field may not be blank.")
	}
	if err := v.Err(); err != nil {
		return err
	}
	if in.Password != in.PasswordConfirm {
		return invalid(NonFieldErrors, "Passwords don't match")
	}
	return nil
}

// validUsername 字母、数字和 @/./+/-/_
func validUsername(name string) bool {
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		return false
	}
	return true
}

func (s *AccountService) checkUnique(ctx context.Context, username, email string) error {
	v := &ValidationError{}
	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return err
	}
	if taken {
		v.Add("username", "A user with that username already exists.")
	}
	taken, err = s.users.EmailTaken(ctx, email)
	if err != nil {
		return err
	}
	if taken {
		v.Add("email", "A user with that email already exists.")
	}
	return v.Err()
}

func (s *AccountService) sendWelcome(user *model.User) {
	if s.mailer == nil {
		return
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}
	if err := s.mailer.SendWelcome(user.Email, name); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("welcome email failed")
	}
}

// openSession 新会话覆盖旧会话（其它端登录的 token 随之失效）
func (s *AccountService) openSession(ctx context.Context, userID uint64) (*pkg.Pair, error) {
	sessionID := uuid.NewString()
	tokens, err := s.tokens.GeneratePair(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err = s.sessions.Save(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (s *AccountService) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	if login == "" || password == "" {
		return nil, invalid(NonFieldErrors, "Please provide both username and password")
	}
	user, err := s.authenticatePassword(ctx, login, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.metrics.Login(false)
		}
		return nil, err
	}

	tokens, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.metrics.Login(true)
	s.log.WithField("user_id", user.ID).Info("user logged in")
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// authenticatePassword 先按用户名精确匹配，密码不对或没有该用户名时再按邮箱匹配。
// 用户名允许包含 @ 和 .，可能和别人的邮箱相同，所以两个候选都要试。
func (s *AccountService) authenticatePassword(ctx context.Context, login, password string) (*model.User, error) {
	finders := []func(context.Context, string) (*model.User, error){
		s.users.FindByUsername,
		s.users.FindByEmail,
	}
	for _, find := range finders {
		user, err := find(ctx, login)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil {
			return user, nil
		}
	}
	return nil, unauthenticated(ErrInvalidCredentials)
}

// Logout 幂等：会话不存在或已被新登录替换都视为成功
func (s *AccountService) Logout(ctx context.Context, userID uint64, sessionID string) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	if err := s.sessions.DeleteIfMatch(ctx, userID, sessionID); err != nil {
		return err
	}
	s.log.WithField("user_id", userID).Info("user logged out")
	return nil
}

// ParseAccess 只校验签名和有效期，不看会话；logout 用
func (s *AccountService) ParseAccess(token string) (*pkg.Claims, error) {
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		return nil, unauthenticated(err)
	}
	return claims, nil
}

// Authenticate 校验 access token 且会话仍然有效，成功后续期
func (s *AccountService) Authenticate(ctx context.Context, token string) (*pkg.Claims, error) {
	claims, err := s.ParseAccess(token)
	if err != nil {
		return nil, err
	}
	if err = s.checkSession(ctx, claims); err != nil {
		return nil, err
	}
	if err = s.sessions.Extend(ctx, claims.UserID); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AccountService) checkSession(ctx context.Context, claims *pkg.Claims) error {
	current, err := s.sessions.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, redis.ErrSessionNotFound) {
			return unauthenticated(ErrSessionRevoked)
		}
		return err
	}
	if current != claims.SessionID() {
		return unauthenticated(ErrSessionRevoked)
	}
	return nil
}

// Refresh 用 refresh token 换新的一对 token，会话 ID 不变
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, unauthenticated(err)
	}
	if err = s.checkSession(ctx, claims); err != nil {
		return nil, err
	}
	tokens, err := s.tokens.GeneratePair(claims.UserID, claims.SessionID())
	if err != nil {
		return nil, err
	}
	if err = s.sessions.Extend(ctx, claims.UserID); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (s *AccountService) Me(ctx context.Context, userID uint64) (*model.User, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	return user, nil
}

// ChangePassword 校验旧密码后更新，并换一个新会话，其它端的 token 随之失效
func (s *AccountService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) (*pkg.Pair, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	v := &ValidationError{}
	if oldPassword == "" {
		v.Add("old_password", "This field may not be blank.")
	}
	if newPassword == "" {
		v.Add("new_password", "This field may not be blank.")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return nil, invalid("old_password", "Old password is incorrect.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return nil, err
	}
	if err = s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return nil, err
	}

	tokens, err := s.openSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.log.WithField("user_id", userID).Info("password changed")
	return tokens, nil
}
