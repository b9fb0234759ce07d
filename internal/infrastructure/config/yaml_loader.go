package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	cfgpkg "github.com/alexisbeaulieu97/batchflow/internal/config"
	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/ports"
	apperrors "github.com/alexisbeaulieu97/batchflow/pkg/errors"
)

// YAMLLoader implements the ScenarioLoader port by reading YAML files from disk.
type YAMLLoader struct {
	logger ports.Logger
}

func NewYAMLLoader(logger ports.Logger) *YAMLLoader {
	return &YAMLLoader{logger: logger}
}

func (l *YAMLLoader) Load(ctx context.Context, path string) (*scenario.Scenario, error) {
	if err := contextCheck(ctx); err != nil {
		return nil, err
	}

	l.logDebug(ctx, "loading scenario", map[string]interface{}{"path": path})

	doc, err := cfgpkg.ParseDocument(path)
	if err != nil {
		l.logError(ctx, "failed to parse scenario", err, map[string]interface{}{"path": path})
		return nil, convertError(err, path)
	}

	if err := contextCheck(ctx); err != nil {
		return nil, err
	}

	s, err := doc.ToScenario()
	if err != nil {
		return nil, domainError(scenario.ErrCodeConfig, "scenario conversion failed", err, map[string]interface{}{"path": path})
	}
	if err := s.Validate(); err != nil {
		l.logError(ctx, "scenario failed domain validation", err, map[string]interface{}{"path": path})
		return nil, err
	}

	l.logInfo(ctx, "scenario loaded", map[string]interface{}{"path": path, "name": s.Name, "steps": len(s.Steps)})
	return s, nil
}

func (l *YAMLLoader) Validate(ctx context.Context, path string) error {
	if err := contextCheck(ctx); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		l.logError(ctx, "scenario path stat failed", err, map[string]interface{}{"path": path})
		return convertError(err, path)
	}
	if info.IsDir() {
		return domainError(scenario.ErrCodeValidation, "scenario path is a directory", nil, map[string]interface{}{"path": path})
	}

	ext := filepath.Ext(path)
	switch ext {
	case ".yaml", ".yml":
		l.logDebug(ctx, "validating scenario", map[string]interface{}{"path": path})
		_, err = l.Load(ctx, path)
	default:
		err = domainError(scenario.ErrCodeValidation, "unsupported scenario file extension", nil, map[string]interface{}{"path": path, "extension": ext})
	}

	return err
}

var _ ports.ScenarioLoader = (*YAMLLoader)(nil)

func convertError(err error, path string) error {
	if err == nil {
		return nil
	}
	var parseErr *apperrors.ParseError
	if errors.As(err, &parseErr) {
		if errors.Is(parseErr.Err, os.ErrNotExist) {
			return domainError(scenario.ErrCodeNotFound, "scenario not found", parseErr.Err, map[string]interface{}{"path": path})
		}
		return domainError(scenario.ErrCodeValidation, "invalid scenario syntax", err, map[string]interface{}{"path": parseErr.Path, "line": parseErr.Line})
	}
	var valErr *apperrors.ValidationError
	if errors.As(err, &valErr) {
		context := map[string]interface{}{"path": path}
		if valErr.Field != "" {
			context["field"] = valErr.Field
		}
		msg := valErr.Message
		if valErr.Field != "" && !strings.Contains(msg, valErr.Field) {
			msg = valErr.Field + ": " + msg
		}
		return domainError(scenario.ErrCodeValidation, msg, valErr.Err, context)
	}
	if os.IsNotExist(err) {
		return domainError(scenario.ErrCodeNotFound, "scenario not found", err, map[string]interface{}{"path": path})
	}
	return domainError(scenario.ErrCodeInternal, "scenario load failed", err, map[string]interface{}{"path": path})
}

func contextCheck(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return domainError(scenario.ErrCodeCancelled, "operation cancelled", err, nil)
	}
	return nil
}

func domainError(code scenario.ErrorCode, message string, cause error, ctx map[string]interface{}) *scenario.DomainError {
	return &scenario.DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: ctx,
	}
}

func (l *YAMLLoader) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Debug(ctx, msg, flattenFields(fields)...)
}

func (l *YAMLLoader) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Info(ctx, msg, flattenFields(fields)...)
}

func (l *YAMLLoader) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	payload := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["error"] = err
	l.logger.Error(ctx, msg, flattenFields(payload)...)
}

func flattenFields(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return args
}
