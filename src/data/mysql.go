package data

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/commforge/challengebot/src/types"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GetMySQLDSN returns the MySQL DSN configured via environment.
func GetMySQLDSN() string {
	dsn := os.Getenv("MYSQL_DSN")
	if strings.TrimSpace(dsn) == "" {
		dsn = "challengebot:challengebot@tcp(127.0.0.1:3306)/challengebot" // development default
	}
	return dsn
}

// ConnectMySQL opens a gorm DB with sane defaults and runs migrations.
func ConnectMySQL(dsn string) (*gorm.DB, error) {
	dsn = ensureParam(dsn, "parseTime", "true")
	if !strings.Contains(dsn, "charset=") {
		dsn = ensureParam(dsn, "charset", "utf8mb4")
		dsn = ensureParam(dsn, "collation", "utf8mb4_unicode_ci")
	}

	gormLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Migrate creates the challenge tables and seeds the theme catalog.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&types.Setting{},
		&types.ChallengeTheme{},
		&types.ChallengeHub{},
		&types.ChallengeParticipant{},
		&types.ChallengeEvaluation{},
		&types.ChallengeEvaluator{},
		&types.ChallengeSubmission{},
	)
	if err != nil {
		return err
	}
	return seedThemes(db)
}

func seedThemes(db *gorm.DB) error {
	themes := []types.ChallengeTheme{
		{Name: "AI Chatbot", Description: "Assistant and conversational agent projects", Icon: "🤖", DifficultyRange: "intermediate-advanced"},
		{Name: "Web App", Description: "Modern web application projects", Icon: "🌐", DifficultyRange: "intermediate-advanced"},
		{Name: "Data Analysis", Description: "Data analysis and visualization projects", Icon: "📊", DifficultyRange: "intermediate"},
		{Name: "Mobile App", Description: "Mobile application projects", Icon: "📱", DifficultyRange: "advanced"},
		{Name: "Automation", Description: "Workflow automation projects", Icon: "⚙️", DifficultyRange: "intermediate"},
	}
	for _, t := range themes {
		var count int64
		if err := db.Model(&types.ChallengeTheme{}).Where("name = ?", t.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		t.ID = uuid.NewString()
		t.Active = true
		if err := db.Create(&t).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}
