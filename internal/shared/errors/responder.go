package errors

import (
	"errors"

	"github.com/gin-gonic/gin"
)

const ContentTypeProblemJSON = "application/problem+json"

// ErrorMapper turns a domain error into a problem; false means "not mine".
type ErrorMapper func(err error) (ProblemDetail, bool)

// ChainedResponder writes problem documents, consulting each mapper in order
// before falling back to a 500.
type ChainedResponder struct {
	baseURI string
	mappers []ErrorMapper
}

func NewChainedResponder(baseURI string, mappers ...ErrorMapper) *ChainedResponder {
	return &ChainedResponder{baseURI: baseURI, mappers: mappers}
}

func (r *ChainedResponder) Respond(c *gin.Context, p ProblemDetail) {
	if r.baseURI != "" && len(p.Type) > 0 && p.Type[0] == '/' {
		p.Type = r.baseURI + p.Type
	}
	if p.Instance == "" {
		p.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.JSON(p.Status, p)
}

func (r *ChainedResponder) RespondError(c *gin.Context, err error) {
	for _, mapper := range r.mappers {
		if p, ok := mapper(err); ok {
			r.Respond(c, p)
			return
		}
	}
	var p ProblemDetail
	if errors.As(err, &p) {
		r.Respond(c, p)
		return
	}
	r.Respond(c, ErrInternal.WithDetail(err.Error()))
}

func (r *ChainedResponder) BadRequest(c *gin.Context, detail string) {
	r.Respond(c, ErrBadRequest.WithDetail(detail))
}

func (r *ChainedResponder) ValidationFailed(c *gin.Context, fieldErrors map[string]string) {
	r.Respond(c, NewValidationProblem(fieldErrors))
}

var defaultResponder = NewChainedResponder("")

// Respond writes p with relative problem type URIs.
func Respond(c *gin.Context, p ProblemDetail) {
	defaultResponder.Respond(c, p)
}
