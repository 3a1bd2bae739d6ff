package e2e

import (
	"chat-broadcast/auth"
	"chat-broadcast/domain"
	"chat-broadcast/infrastructure/grpc/api"
	"chat-broadcast/wire"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type testBroadcastSuite struct {
	BaseGrpcSuite
}

func TestBroadcastSuite(t *testing.T) {
	suite.Run(t, &testBroadcastSuite{})
}

func (s *testBroadcastSuite) TestLoginSubmitAndReceive() {
	// A unique marker keeps this run apart from other traffic on the server
	marker := uuid.NewString()

	s.WithChat("Subscribe then submit as a logged in user", func(ctx context.Context, client api.ChatServiceClient) {
		token, err := client.Login(ctx, wire.Credentials(s.Config.Username, s.Config.Password))
		s.Require().NoError(err)
		authCtx := auth.OutgoingContext(ctx, token.GetValue())

		stream, err := client.Subscribe(authCtx, &emptypb.Empty{})
		s.Require().NoError(err)
		_, err = stream.Header()
		s.Require().NoError(err)

		_, err = client.Submit(authCtx, wrapperspb.String("named "+marker))
		s.Require().NoError(err)
		_, err = client.Submit(ctx, wrapperspb.String("anonymous "+marker))
		s.Require().NoError(err)

		var received []domain.ChatMessage
		for len(received) < 2 {
			res, err := stream.Recv()
			s.Require().NoError(err)
			msg, err := wire.ToMessage(res)
			s.Require().NoError(err)
			if strings.HasSuffix(msg.Text, marker) {
				received = append(received, msg)
			}
		}

		s.Equal(s.Config.Username, received[0].UserName)
		s.Equal("named "+marker, received[0].Text)
		s.Equal(domain.Anonymous, received[1].UserName)
		s.False(received[1].Time.Before(received[0].Time))
	})

	s.Run("Archived messages are searchable", func() {
		s.WithChat("Search the marker", func(ctx context.Context, client api.ChatServiceClient) {
			s.Eventually(func() bool {
				res, err := client.Search(ctx, wrapperspb.String(marker))
				if err != nil {
					return false
				}
				found, _, err := wire.ToPage(res)
				return err == nil && len(found) == 2
			}, 5*time.Second, 100*time.Millisecond)
		})
	})
}
