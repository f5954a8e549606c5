package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response is the envelope every JSON endpoint answers with. Data is always
// present (null on failure) so clients can decode without branching.
type Response struct {
	Data       interface{} `json:"data"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   Metadata    `json:"metadata"`
}

type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives the page count from total and perPage.
func NewPagination(page, perPage, total int) *Pagination {
	p := &Pagination{Page: page, PerPage: perPage, TotalItems: total}
	if perPage > 0 {
		p.TotalPages = (total + perPage - 1) / perPage
	}
	return p
}

type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

func Success(c *gin.Context, statusCode int, data interface{}) {
	write(c, statusCode, Response{Data: data})
}

func SuccessWithPagination(c *gin.Context, statusCode int, data interface{}, pagination *Pagination) {
	write(c, statusCode, Response{Data: data, Pagination: pagination})
}

// Fail answers with code and its stock message.
func Fail(c *gin.Context, statusCode int, code ErrCode) {
	write(c, statusCode, failure(code, GetMessage(code), nil))
}

// FailWithFields attaches per-field validation messages.
func FailWithFields(c *gin.Context, statusCode int, code ErrCode, fields map[string]string) {
	write(c, statusCode, failure(code, GetMessage(code), fields))
}

// FailWithMessage replaces the stock message with a more specific one.
func FailWithMessage(c *gin.Context, statusCode int, code ErrCode, message string) {
	write(c, statusCode, failure(code, message, nil))
}

// AbortFail stops the handler chain; used by middleware.
func AbortFail(c *gin.Context, statusCode int, code ErrCode) {
	body := failure(code, GetMessage(code), nil)
	body.Metadata = metadataFor(c)
	c.AbortWithStatusJSON(statusCode, body)
}

func failure(code ErrCode, message string, fields map[string]string) Response {
	return Response{Error: &ErrorBody{Code: code, Message: message, Fields: fields}}
}

func write(c *gin.Context, statusCode int, body Response) {
	body.Metadata = metadataFor(c)
	c.JSON(statusCode, body)
}

func metadataFor(c *gin.Context) Metadata {
	id := c.GetString(ContextKeyRequestID)
	if id == "" {
		// request id middleware not mounted
		id = uuid.NewString()
	}
	return Metadata{
		RequestID: id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
