// Package s3 provides an S3 / MinIO object sink for xbridge.
//
// Sink name: "s3"
//
// Each artifact is stored as one object at <prefix>/<name> with a content
// type derived from its extension. The bucket is checked with HeadBucket
// before the first write and created when missing and auto_create is set.
//
// Config keys: bucket (required), prefix, region (default "us-east-1"),
// endpoint, access_key_id, secret_access_key, use_ssl (default true),
// force_path_style, auto_create (default true).
package s3
