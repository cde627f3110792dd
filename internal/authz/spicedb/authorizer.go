// internal/authz/spicedb/authorizer.go
package spicedb

import (
	"context"
	"fmt"

	"proxyauth/internal/authz"
	"proxyauth/internal/observability/logging"

	v1pb "github.com/authzed/authzed-go/proto/authzed/api/v1"
	"github.com/authzed/authzed-go/v1"
	"github.com/authzed/grpcutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// PermissionsChecker is the part of the SpiceDB client used by the authorizer
type PermissionsChecker interface {
	CheckPermission(ctx context.Context, in *v1pb.CheckPermissionRequest, opts ...grpc.CallOption) (*v1pb.CheckPermissionResponse, error)
}

// Authorizer implements authorization using SpiceDB
type Authorizer struct {
	client       PermissionsChecker
	resourceType string
	resourceID   string
	subjectType  string
	logger       *logging.Logger
}

var _ authz.Authorizer = (*Authorizer)(nil)

// Config holds SpiceDB authorizer configuration
type Config struct {
	// Endpoint is the SpiceDB endpoint
	Endpoint string

	// Insecure indicates whether to use an insecure connection
	Insecure bool

	// Token is the SpiceDB authentication token
	Token string

	// ResourceType is the SpiceDB resource type
	ResourceType string

	// ResourceID is the SpiceDB resource ID
	ResourceID string

	// SubjectType is the SpiceDB subject type
	SubjectType string
}

// NewClient connects to SpiceDB
func NewClient(config Config) (*authzed.Client, error) {
	var opts []grpc.DialOption
	if config.Insecure {
		opts = append(opts,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpcutil.WithInsecureBearerToken(config.Token),
		)
	} else {
		systemCerts, err := grpcutil.WithSystemCerts(grpcutil.VerifyCA)
		if err != nil {
			return nil, fmt.Errorf("failed to load system certificates: %w", err)
		}
		opts = append(opts, systemCerts, grpcutil.WithBearerToken(config.Token))
	}

	client, err := authzed.NewClient(config.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SpiceDB client: %w", err)
	}
	return client, nil
}

// New creates a new SpiceDB authorizer
func New(config Config, client PermissionsChecker, logger *logging.Logger) *Authorizer {
	return &Authorizer{
		client:       client,
		resourceType: config.ResourceType,
		resourceID:   config.ResourceID,
		subjectType:  config.SubjectType,
		logger:       logger.WithModule("authz.spicedb"),
	}
}

// Authorize checks if the principal has the specified permission on the resource
func (a *Authorizer) Authorize(req *authz.Request) *authz.Response {
	// If no principal, return Unauthorized
	if req.Principal == nil {
		return &authz.Response{
			Decision: authz.Unauthorized,
			Reason:   "No principal provided",
		}
	}

	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}

	// Determine resource ID to use
	resourceID := req.Resource
	if resourceID == "" {
		resourceID = a.resourceID
	}

	checkReq := &v1pb.CheckPermissionRequest{
		Resource: &v1pb.ObjectReference{
			ObjectType: a.resourceType,
			ObjectId:   resourceID,
		},
		Permission: req.Permission,
		Subject: &v1pb.SubjectReference{
			Object: &v1pb.ObjectReference{
				ObjectType: a.subjectType,
				ObjectId:   req.Principal.Login,
			},
		},
	}

	resp, err := a.client.CheckPermission(ctx, checkReq)
	if err != nil {
		a.logger.WithContext(ctx).Error("Error checking permission with SpiceDB",
			logging.Err(err),
			"subject", req.Principal.Login,
			"resource", resourceID,
			"permission", req.Permission,
		)
		return &authz.Response{
			Decision: authz.Error,
			Reason:   "Error checking permission",
			Error:    err,
		}
	}

	if resp.GetPermissionship() == v1pb.CheckPermissionResponse_PERMISSIONSHIP_HAS_PERMISSION {
		return &authz.Response{
			Decision: authz.Allow,
			Reason:   "Permission granted",
		}
	}

	return &authz.Response{
		Decision: authz.Deny,
		Reason:   "Permission denied",
	}
}
