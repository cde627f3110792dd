package spicedb

import (
	"context"
	"errors"
	"io"
	"testing"

	"proxyauth/internal/auth"
	"proxyauth/internal/authz"
	"proxyauth/internal/observability/logging"

	v1pb "github.com/authzed/authzed-go/proto/authzed/api/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

// fakeChecker records the last request and returns a fixed answer
type fakeChecker struct {
	last           *v1pb.CheckPermissionRequest
	permissionship v1pb.CheckPermissionResponse_Permissionship
	err            error
}

func (f *fakeChecker) CheckPermission(_ context.Context, in *v1pb.CheckPermissionRequest, _ ...grpc.CallOption) (*v1pb.CheckPermissionResponse, error) {
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &v1pb.CheckPermissionResponse{Permissionship: f.permissionship}, nil
}

func newTestAuthorizer(t *testing.T, checker *fakeChecker) *Authorizer {
	t.Helper()
	logger, err := logging.NewWithWriter(io.Discard, "debug", "text")
	require.NoError(t, err)
	return New(Config{
		ResourceType: "application",
		ResourceID:   "sonar",
		SubjectType:  "user",
	}, checker, logger)
}

func TestAuthorize(t *testing.T) {
	principal := &auth.Principal{Login: "jdoe"}

	tests := []struct {
		name      string
		checker   *fakeChecker
		principal *auth.Principal
		resource  string
		want      authz.Decision
	}{
		{
			name:      "Granted",
			checker:   &fakeChecker{permissionship: v1pb.CheckPermissionResponse_PERMISSIONSHIP_HAS_PERMISSION},
			principal: principal,
			want:      authz.Allow,
		},
		{
			name:      "Denied",
			checker:   &fakeChecker{permissionship: v1pb.CheckPermissionResponse_PERMISSIONSHIP_NO_PERMISSION},
			principal: principal,
			want:      authz.Deny,
		},
		{
			name:      "Conditional",
			checker:   &fakeChecker{permissionship: v1pb.CheckPermissionResponse_PERMISSIONSHIP_CONDITIONAL_PERMISSION},
			principal: principal,
			want:      authz.Deny,
		},
		{
			name:      "Unavailable",
			checker:   &fakeChecker{err: errors.New("unavailable")},
			principal: principal,
			want:      authz.Error,
		},
		{
			name:    "NoPrincipal",
			checker: &fakeChecker{},
			want:    authz.Unauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAuthorizer(t, tt.checker)
			resp := a.Authorize(&authz.Request{
				Principal:  tt.principal,
				Permission: "view",
				Resource:   tt.resource,
				Context:    context.Background(),
			})
			assert.Equal(t, tt.want, resp.Decision)
			if tt.want == authz.Error {
				assert.Error(t, resp.Error)
			}
		})
	}
}

func TestAuthorize_Request(t *testing.T) {
	checker := &fakeChecker{permissionship: v1pb.CheckPermissionResponse_PERMISSIONSHIP_HAS_PERMISSION}
	a := newTestAuthorizer(t, checker)

	a.Authorize(&authz.Request{
		Principal:  &auth.Principal{Login: "jdoe"},
		Permission: "admin",
		Context:    context.Background(),
	})
	require.NotNil(t, checker.last)
	assert.Equal(t, "application", checker.last.GetResource().GetObjectType())
	assert.Equal(t, "sonar", checker.last.GetResource().GetObjectId())
	assert.Equal(t, "admin", checker.last.GetPermission())
	assert.Equal(t, "user", checker.last.GetSubject().GetObject().GetObjectType())
	assert.Equal(t, "jdoe", checker.last.GetSubject().GetObject().GetObjectId())

	a.Authorize(&authz.Request{
		Principal:  &auth.Principal{Login: "jdoe"},
		Permission: "view",
		Resource:   "project-42",
	})
	assert.Equal(t, "project-42", checker.last.GetResource().GetObjectId())
}
