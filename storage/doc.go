// Package storage connects pipelines to object storage backends.
//
// Backends implement Storage and register a factory under a provider name.
// Reader and Writer turn any Storage into a pipeline feed and sink.
//
// # Backends
//
//   - storage/local: filesystem under a base directory
//   - storage/s3: Amazon S3 and S3-compatible services
//   - storage/redis: values stored under a key prefix in Redis
//
// # Configuration
//
//	storage:
//	  provider: "s3"
//	  max_file_size: "100MiB"
//	  s3:
//	    bucket: "my-bucket"
//	    region: "us-east-1"
package storage
