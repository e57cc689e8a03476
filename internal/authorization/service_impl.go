package authorization

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	_ "embed"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/rateboard/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

// LocalActor is used for every request when authentication is disabled.
const LocalActor = "local"

type apiKey struct {
	secret []byte
	actor  string
	role   string
}

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	keys     []apiKey
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) (Service, error) {
	keys, err := parseAPIKeys(p.Config.APIKeys)
	if err != nil {
		return nil, err
	}
	s := &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		keys:     keys,
	}
	for _, k := range keys {
		if err := s.ensureGrouping(k.actor, roleSubject(k.role)); err != nil {
			return nil, err
		}
	}
	if !s.Enabled() {
		s.log.Warn("no API keys configured; authorization disabled")
	}
	return s, nil
}

// parseAPIKeys reads a comma separated list of key:role pairs.
func parseAPIKeys(raw string) ([]apiKey, error) {
	var keys []apiKey
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idx := strings.LastIndex(entry, ":")
		if idx <= 0 || idx == len(entry)-1 {
			return nil, fmt.Errorf("%w: expected key:role", ErrInvalidRole)
		}
		secret, role := entry[:idx], strings.ToLower(strings.TrimSpace(entry[idx+1:]))
		if role != RoleViewer && role != RoleAnalyst {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
		}
		keys = append(keys, apiKey{secret: []byte(secret), actor: actorFor(secret), role: role})
	}
	return keys, nil
}

func (s *ServiceImpl) Enabled() bool { return len(s.keys) > 0 }

func (s *ServiceImpl) Authenticate(ctx context.Context, key string) (string, error) {
	if !s.Enabled() {
		return LocalActor, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrUnauthenticated
	}
	for _, k := range s.keys {
		if subtle.ConstantTimeCompare(k.secret, []byte(key)) == 1 {
			return k.actor, nil
		}
	}
	return "", ErrUnauthenticated
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor, object, action string) error {
	if !s.Enabled() {
		return nil
	}
	actor = strings.TrimSpace(actor)
	if !strings.HasPrefix(actor, "api_key:") {
		return ErrInvalidActor
	}

	allowed, err := s.enforcer.Enforce(actor, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("actor", actor),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) ensureGrouping(subject, role string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) >= 2 && rule[1] != role {
			if _, err := s.enforcer.RemoveGroupingPolicy(rule[0], rule[1]); err != nil {
				return err
			}
		}
	}
	has, err := s.enforcer.HasGroupingPolicy(subject, role)
	if err != nil || has {
		return err
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, role)
	return err
}

// actorFor derives a stable subject from the key without storing the key.
func actorFor(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return "api_key:" + hex.EncodeToString(sum[:8])
}

func roleSubject(role string) string { return "role:" + role }

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{roleSubject(RoleViewer), ObjectHeatmap, ActionView},
		{roleSubject(RoleViewer), ObjectSession, ActionManage},
		{roleSubject(RoleViewer), ObjectMismatch, ActionView},

		{roleSubject(RoleAnalyst), ObjectMismatch, ActionAnalyze},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	_, err := enforcer.AddGroupingPolicy(roleSubject(RoleAnalyst), roleSubject(RoleViewer))
	return err
}
