package apicodes

import "google.golang.org/grpc/codes"

// Teapot 非标准状态码
const Teapot codes.Code = 418
