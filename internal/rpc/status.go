// ABOUTME: Conversion between registry errors and gRPC statuses
// ABOUTME: Carries the numeric registry code in an ErrorInfo detail

package rpc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/2389/mythic-metadata/internal/registry"
)

// ErrorDomain identifies registry errors in ErrorInfo details.
const ErrorDomain = "mythic.metadata.v1"

// GRPCCode maps a registry error to the status code it travels as.
func GRPCCode(err error) codes.Code {
	switch registry.KindOf(err) {
	case "":
		return codes.OK
	case registry.KindAlreadyExists:
		return codes.AlreadyExists
	case registry.KindNotFound:
		return codes.NotFound
	case registry.KindUnauthorized:
		if errors.Is(err, registry.ErrSignatureInvalid) || errors.Is(err, registry.ErrSignatureExpired) {
			return codes.Unauthenticated
		}
		return codes.PermissionDenied
	case registry.KindInvalidArgument:
		return codes.InvalidArgument
	case registry.KindExhausted:
		return codes.ResourceExhausted
	case registry.KindConflict:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// ToStatus converts err into a gRPC status error. Errors that already are
// statuses pass through.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && !isRegistryError(err) {
		return err
	}

	kind := registry.KindOf(err)
	code := registry.CodeOf(err)
	st := status.New(GRPCCode(err), err.Error())
	detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: strings.ToUpper(string(kind)),
		Domain: ErrorDomain,
		Metadata: map[string]string{
			"code": strconv.FormatUint(uint64(code), 10),
			"kind": string(kind),
		},
	})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

func isRegistryError(err error) bool {
	var e *registry.Error
	return errors.As(err, &e)
}

// FromStatus recovers the registry error carried by a status. Statuses
// without registry details are returned unchanged.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain {
			continue
		}
		code, perr := strconv.ParseUint(info.GetMetadata()["code"], 10, 32)
		if perr != nil {
			continue
		}
		sentinel, known := registry.ErrorByCode(uint32(code))
		if !known {
			continue
		}
		detail := strings.TrimPrefix(st.Message(), sentinel.Msg)
		detail = strings.TrimPrefix(detail, ": ")
		if detail == "" {
			return sentinel
		}
		return fmt.Errorf("%w: %s", sentinel, detail)
	}
	return err
}
