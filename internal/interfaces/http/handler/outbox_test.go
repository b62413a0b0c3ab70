package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/astracore/gl-service/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupOutboxRouter(reader *mockOutboxReader) *gin.Engine {
	h := NewOutboxHandler(reader)
	r := gin.New()
	r.GET("/outbox/stats", h.Stats)
	r.GET("/outbox/dead", h.DeadEntries)
	return r
}

func TestOutboxHandler_Stats(t *testing.T) {
	reader := new(mockOutboxReader)
	reader.On("CountByStatus", mock.Anything).Return(map[shared.OutboxStatus]int64{
		shared.OutboxStatusSent: 12,
		shared.OutboxStatusDead: 1,
	}, nil)

	w, resp := doGet(setupOutboxRouter(reader), "/outbox/stats")

	require.Equal(t, http.StatusOK, w.Code)
	stats := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(12), stats["SENT"])
	assert.Equal(t, float64(1), stats["DEAD"])
	assert.Equal(t, float64(0), stats["PENDING"])
}

func TestOutboxHandler_Stats_Error(t *testing.T) {
	reader := new(mockOutboxReader)
	reader.On("CountByStatus", mock.Anything).Return(nil, errors.New("db down"))

	w, _ := doGet(setupOutboxRouter(reader), "/outbox/stats")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestOutboxHandler_DeadEntries(t *testing.T) {
	entry := &shared.OutboxEntry{
		ID:          uuid.New(),
		EventID:     uuid.New(),
		EventType:   "LedgerTransactionPosted",
		AggregateID: "tx-1",
		Status:      shared.OutboxStatusDead,
		RetryCount:  5,
		LastError:   "broker unavailable",
	}
	reader := new(mockOutboxReader)
	reader.On("FindDead", mock.Anything, 2, 5).Return([]*shared.OutboxEntry{entry}, int64(6), nil)

	w, resp := doGet(setupOutboxRouter(reader), "/outbox/dead?page=2&page_size=5")

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 5, resp.Meta.Offset)
	items := resp.Data.([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "broker unavailable", items[0].(map[string]interface{})["last_error"])
}

func TestOutboxHandler_DeadEntries_Defaults(t *testing.T) {
	reader := new(mockOutboxReader)
	reader.On("FindDead", mock.Anything, 1, 20).Return([]*shared.OutboxEntry{}, int64(0), nil)

	w, _ := doGet(setupOutboxRouter(reader), "/outbox/dead")

	assert.Equal(t, http.StatusOK, w.Code)
	reader.AssertExpectations(t)
}
