package app

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/jobs"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/moodlews"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/render"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/scoring"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/store"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/subcourse"
)

type Service struct {
	Config     *Config
	Store      store.SubcourseStore
	Redis      *redis.Client
	Auth       *Auth
	Tokens     *TokenManager
	Module     *subcourse.Module
	Controller *subcourse.Controller
	Jobs       *jobs.Runner
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	opt, err := redis.ParseURL(config.Auth.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	st, err := NewStore(config.Database.DSN, config.Database.MigrationsDir)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	renderer, err := render.New()
	if err != nil {
		st.Close()
		client.Close()
		return nil, fmt.Errorf("failed to init renderer: %w", err)
	}

	return NewServiceWith(config, st, client, renderer), nil
}

func NewServiceWith(config *Config, st store.SubcourseStore, client *redis.Client, renderer *render.Renderer) *Service {
	var source scoring.GradeSource = st
	if config.Moodle.WSURL != "" {
		logger.Info.Printf("Fetching referenced course grades from %s", config.Moodle.WSURL)
		source = moodlews.NewClient(config.Moodle.WSURL, config.Moodle.WSToken, config.WSTimeout())
	}
	synchronizer := scoring.NewSynchronizer(source, st)

	// validated on load
	grants, _ := config.RoleGrants()
	caps := subcourse.NewCapabilities(st, grants)
	module := subcourse.NewModule(st, synchronizer, caps, config.ModuleConfig())

	auth := NewAuth(config, client)
	tokens := NewTokenManager(client, auth, config.SessionTTL())

	return &Service{
		Config:     config,
		Store:      st,
		Redis:      client,
		Auth:       auth,
		Tokens:     tokens,
		Module:     module,
		Controller: subcourse.NewController(module, tokens, renderer),
		Jobs:       jobs.NewRunner(st, synchronizer, module.Completion()),
	}
}

func (s *Service) ValidateHeaders(headers map[string][]string) bool {
	for _, required := range s.Config.API.RequiredHeaders {
		value := headers[http.CanonicalHeaderKey(required.Name)]
		if len(value) == 0 || !strings.EqualFold(value[0], required.Value) {
			return false
		}
	}
	return true
}

// Viewer identifies the user behind a request from the configured headers
// and checks their bearer token when auth is enabled.
func (s *Service) Viewer(r *http.Request) (*models.Viewer, error) {
	raw := r.Header.Get(s.Config.API.UserIDHeader)
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("invalid user id %q: %w", raw, ErrUnauthorized)
	}

	if err := s.Auth.ValidateToken(r.Context(), userID, r.Header.Get(s.Auth.TokenHeader())); err != nil {
		return nil, err
	}

	code := r.Header.Get(s.Config.API.LangHeader)
	if code == "" {
		code = s.Config.Display.DefaultLang
	}

	return &models.Viewer{
		UserID:    userID,
		Lang:      code,
		SiteAdmin: s.Config.IsSiteAdmin(userID),
	}, nil
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
