package featurestore

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of Client.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetRecords(ctx context.Context, userIDs []int64) (map[int64]Record, error) {
	args := m.Called(ctx, userIDs)
	records, _ := args.Get(0).(map[int64]Record)
	return records, args.Error(1)
}
