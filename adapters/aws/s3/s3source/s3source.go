// Package s3source loads documents from objects in an S3 bucket.
//
// Objects ending in .csv are parsed as chat exports, everything else is
// split into sentences. Objects are fetched lazily as the consumer
// advances, so a large prefix never sits in memory at once.
package s3source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/clickagent/clickagent/document"
)

var _ document.Source = (*S3Source)(nil)

type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
	opts   []document.SourceOption

	paginator *s3.ListObjectsV2Paginator
	keys      []string
	current   document.Source
}

func NewS3Source(client *s3.Client, bucket, prefix string, opts ...document.SourceOption) *S3Source {
	input := &s3.ListObjectsV2Input{
		Bucket: &bucket,
		Prefix: &prefix,
	}
	return &S3Source{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		opts:      opts,
		paginator: s3.NewListObjectsV2Paginator(client, input),
	}
}

// Next returns the next document, advancing to the following object when
// the current one is exhausted. It returns io.EOF after the last object.
func (s *S3Source) Next(ctx context.Context) (document.Document, error) {
	for {
		if s.current != nil {
			doc, err := s.current.Next(ctx)
			if !errors.Is(err, io.EOF) {
				return doc, err
			}
			s.current = nil
		}

		key, err := s.nextKey(ctx)
		if err != nil {
			return document.Document{}, err
		}

		inner, err := s.openObject(ctx, key)
		if err != nil {
			return document.Document{}, err
		}
		s.current = inner
	}
}

// nextKey pops the next object key, fetching further listing pages as
// needed. io.EOF signals the listing is exhausted.
func (s *S3Source) nextKey(ctx context.Context) (string, error) {
	for len(s.keys) == 0 {
		if !s.paginator.HasMorePages() {
			return "", io.EOF
		}
		page, err := s.paginator.NextPage(ctx)
		if err != nil {
			return "", &document.RecordError{
				Source:  "s3",
				Message: "failed to list objects",
				Err:     err,
			}
		}
		for _, obj := range page.Contents {
			s.keys = append(s.keys, *obj.Key)
		}
	}
	key := s.keys[0]
	s.keys = s.keys[1:]
	return key, nil
}

func (s *S3Source) openObject(ctx context.Context, key string) (document.Source, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, &document.RecordError{
			Source:  "s3",
			Message: "failed to get object " + key,
			Err:     err,
		}
	}
	defer result.Body.Close()

	content, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, &document.RecordError{
			Source:  "s3",
			Message: "failed to read object " + key,
			Err:     err,
		}
	}

	uri := "s3://" + s.bucket + "/" + key
	opts := append([]document.SourceOption{document.WithOrigin(uri)}, s.opts...)

	if path.Ext(key) == ".csv" {
		return document.NewChatSource(bytes.NewReader(content), s.opts...)
	}
	return document.NewTextSource(string(content), opts...)
}
