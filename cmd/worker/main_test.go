// cmd/worker/main_test.go
package main

import (
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

func TestRetryCountReadsAnyIntegerWidth(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 0, retryCount(amqp.Table{}))
	assert.Equal(t, 2, retryCount(amqp.Table{"x-retry-count": 2}))
	assert.Equal(t, 2, retryCount(amqp.Table{"x-retry-count": int32(2)}))
	assert.Equal(t, 2, retryCount(amqp.Table{"x-retry-count": int64(2)}))
}

func TestRetryCountIgnoresUnexpectedTypes(t *testing.T) {
	assert.Equal(t, 0, retryCount(amqp.Table{"x-retry-count": "2"}))
	assert.Equal(t, 0, retryCount(amqp.Table{"x-retry-count": 2.0}))
}
