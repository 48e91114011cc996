package usecase

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/domain/repository"
)

// WisdomFunction serves the get-wisdom function contract: one model call,
// no fallback of its own. Callers read UseFallback and fall back themselves.
type WisdomFunction struct {
	provider repository.AIProvider
	log      logrus.FieldLogger
}

func NewWisdomFunction(provider repository.AIProvider, log logrus.FieldLogger) *WisdomFunction {
	return &WisdomFunction{provider: provider, log: log.WithField("component", "get-wisdom")}
}

func (f *WisdomFunction) Handle(ctx context.Context, req entity.WisdomRequest) entity.RemoteResult {
	req = Normalize(req)
	if req.Question == "" {
		return entity.RemoteResult{
			Status:    "error",
			Error:     entity.ErrInvalidRequest.Error(),
			ErrorKind: entity.FailureUpstream.String(),
		}
	}

	completion, err := f.provider.Generate(ctx, BuildPrompt(req.Question, req.Category, req.Language))
	if err == nil && (completion == nil || strings.TrimSpace(completion.Content) == "") {
		err = entity.NewServiceError(entity.FailureUpstream, "get-wisdom", 0, errEmptyAnswer)
	}
	if err != nil {
		kind := entity.KindOf(err)
		f.log.WithError(err).WithField("failure", kind.String()).Warn("generation failed")
		return entity.RemoteResult{
			Status:      "error",
			UseFallback: true,
			Error:       err.Error(),
			ErrorKind:   kind.String(),
			Message:     "Unable to generate wisdom right now",
		}
	}

	return entity.RemoteResult{Answer: completion.Content, Status: "success"}
}
