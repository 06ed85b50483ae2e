package notify

import (
	"errors"

	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// awsErrorFields extracts the service error code and fault side from an
// AWS SDK error
func awsErrorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields,
			zap.String("aws_error_code", apiErr.ErrorCode()),
			zap.String("aws_fault", apiErr.ErrorFault().String()),
		)
	}
	return fields
}
