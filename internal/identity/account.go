package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"database/sql"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Account is the identity provider's record of a user.
type Account struct {
	ID           string  `gorm:"primaryKey;size:64"`
	Email        *string `gorm:"uniqueIndex;size:320"` // nil for anonymous and token accounts
	PasswordHash string  `gorm:"size:255"`
	Anonymous    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Account) TableName() string { return "accounts" }

func (a Account) EmailAddress() string {
	if a.Email == nil {
		return ""
	}
	return *a.Email
}

// Accounts persists accounts.
type Accounts interface {
	Create(ctx context.Context, a *Account) error
	ByID(ctx context.Context, id string) (*Account, error)
	ByEmail(ctx context.Context, email string) (*Account, error)
}

// MySQLConfig holds the DB_* connection settings.
type MySQLConfig struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", c.User, c.Pass, c.Host, c.Port, c.Name)
}

// GormAccounts stores accounts in MySQL through gorm.
type GormAccounts struct {
	db *gorm.DB
}

// OpenGorm connects to MySQL and migrates the accounts table.
func OpenGorm(cfg MySQLConfig) (*GormAccounts, error) {
	sqlDB, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn: sqlDB,
	}), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return NewGormAccounts(gormDB)
}

func NewGormAccounts(db *gorm.DB) (*GormAccounts, error) {
	if err := db.AutoMigrate(&Account{}); err != nil {
		return nil, fmt.Errorf("migrate accounts: %w", err)
	}
	return &GormAccounts{db: db}, nil
}

func (g *GormAccounts) Create(ctx context.Context, a *Account) error {
	err := g.db.WithContext(ctx).Create(a).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (g *GormAccounts) ByID(ctx context.Context, id string) (*Account, error) {
	return g.first(ctx, "id = ?", id)
}

func (g *GormAccounts) ByEmail(ctx context.Context, email string) (*Account, error) {
	return g.first(ctx, "email = ?", email)
}

func (g *GormAccounts) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *GormAccounts) first(ctx context.Context, query string, arg string) (*Account, error) {
	var a Account
	err := g.db.WithContext(ctx).Where(query, arg).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

// MemAccounts keeps accounts in memory.
type MemAccounts struct {
	mu      sync.Mutex
	byID    map[string]Account
	byEmail map[string]string
}

func NewMemAccounts() *MemAccounts {
	return &MemAccounts{byID: map[string]Account{}, byEmail: map[string]string{}}
}

func (m *MemAccounts) Create(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[a.ID]; ok {
		return fmt.Errorf("create account: duplicate id %q", a.ID)
	}
	email := strings.ToLower(a.EmailAddress())
	if email != "" {
		if _, ok := m.byEmail[email]; ok {
			return ErrEmailTaken
		}
		m.byEmail[email] = a.ID
	}
	m.byID[a.ID] = *a
	return nil
}

func (m *MemAccounts) ByID(ctx context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}

func (m *MemAccounts) ByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrAccountNotFound
	}
	a := m.byID[id]
	return &a, nil
}
