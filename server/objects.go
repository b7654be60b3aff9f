package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gurre/awsgate/envelope"
	"github.com/gurre/awsgate/objectstore"
)

func (app *App) upload(w http.ResponseWriter, r *http.Request) {
	const failure = "Failed to upload object to S3"
	start := time.Now()

	var req objectstore.PutRequest
	err := app.decode(w, r, &req)
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		app.observe("s3_put", start, err)
		app.fail(w, r, failure, err)
		return
	}

	etag, err := app.Objects.Put(r.Context(), req)
	app.observe("s3_put", start, err)
	if err != nil {
		app.fail(w, r, failure, err)
		return
	}

	app.respond(w, r, envelope.Fields{
		"eTag":       etag,
		"bucketName": req.BucketName,
		"objectKey":  req.ObjectKey,
	})
}

// uploadFile accepts multipart/form-data with the parts file, bucketName and
// objectKey. The part's own Content-Type is stored with the object.
func (app *App) uploadFile(w http.ResponseWriter, r *http.Request) {
	const failure = "Failed to upload file to S3"
	start := time.Now()

	req, size, err := app.readMultipart(w, r)
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		app.observe("s3_put", start, err)
		app.fail(w, r, failure, err)
		return
	}

	etag, err := app.Objects.Put(r.Context(), req)
	app.observe("s3_put", start, err)
	if err != nil {
		app.fail(w, r, failure, err)
		return
	}

	app.respond(w, r, envelope.Fields{
		"eTag":       etag,
		"bucketName": req.BucketName,
		"objectKey":  req.ObjectKey,
		"fileSize":   size,
	})
}

func (app *App) readMultipart(w http.ResponseWriter, r *http.Request) (objectstore.PutRequest, int64, error) {
	r.Body = http.MaxBytesReader(w, r.Body, app.maxBody())
	if err := r.ParseMultipartForm(app.maxBody()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return objectstore.PutRequest{}, 0, envelope.Invalid("request body exceeds %d bytes", tooLarge.Limit)
		}
		return objectstore.PutRequest{}, 0, envelope.Invalid("malformed multipart body: %v", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return objectstore.PutRequest{}, 0, envelope.Invalid("file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return objectstore.PutRequest{}, 0, envelope.Invalid("failed to read file part: %v", err)
	}

	req := objectstore.PutRequest{
		BucketName:  r.FormValue("bucketName"),
		ObjectKey:   r.FormValue("objectKey"),
		ContentType: header.Header.Get("Content-Type"),
		Content:     data,
	}
	return req, header.Size, nil
}

// download streams the object as an attachment. The key is everything after
// the bucket segment, so keys may contain slashes.
func (app *App) download(w http.ResponseWriter, r *http.Request) {
	bucket := pathParam(r, "bucketName")
	key := pathParam(r, "*")
	start := time.Now()

	data, err := app.Objects.Get(r.Context(), bucket, key)
	app.observe("s3_get", start, err)
	if err != nil {
		app.fail(w, r, "Failed to download object from S3", err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		app.log(r).WithError(err).Error("failed to write object body")
	}
}

func (app *App) deleteObject(w http.ResponseWriter, r *http.Request) {
	bucket := pathParam(r, "bucketName")
	key := pathParam(r, "*")
	start := time.Now()

	err := app.Objects.Delete(r.Context(), bucket, key)
	app.observe("s3_delete", start, err)
	if err != nil {
		app.fail(w, r, "Failed to delete object from S3", err)
		return
	}

	app.respond(w, r, envelope.Fields{
		"message":    "Object deleted successfully",
		"bucketName": bucket,
		"objectKey":  key,
	})
}

func (app *App) list(w http.ResponseWriter, r *http.Request) {
	bucket := pathParam(r, "bucketName")
	prefix := r.URL.Query().Get("prefix")
	start := time.Now()

	keys, err := app.Objects.List(r.Context(), bucket, prefix)
	app.observe("s3_list", start, err)
	if err != nil {
		app.fail(w, r, "Failed to list objects in S3 bucket", err)
		return
	}
	if keys == nil {
		keys = []string{}
	}

	app.respond(w, r, envelope.Fields{
		"bucketName":  bucket,
		"prefix":      prefix,
		"objectCount": len(keys),
		"objects":     keys,
	})
}

func (app *App) bucketExists(w http.ResponseWriter, r *http.Request) {
	bucket := pathParam(r, "bucketName")
	res := app.Objects.Probe(r.Context(), bucket)
	app.recordProbe(r, "s3_bucket", bucket, res)

	app.respond(w, r, envelope.Fields{
		"bucketName": bucket,
		"exists":     res.Exists(),
	})
}
