package server

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/bucketgate/internal/filestore"
	"github.com/koustreak/bucketgate/internal/gateway"
	"github.com/koustreak/bucketgate/internal/logger"
)

// Credential headers. Absent headers fall back to the configured defaults.
const (
	HeaderRegion          = "X-S3-Region"
	HeaderAccessKeyID     = "X-S3-Access-Key-Id"
	HeaderSecretAccessKey = "X-S3-Secret-Access-Key"
	HeaderBucket          = "X-S3-Bucket"
	HeaderEndpoint        = "X-S3-Endpoint"
)

// recentObjects is how many keys /stats lists next to the aggregate.
const recentObjects = 5

func credentials(r *http.Request) filestore.Credentials {
	return filestore.Credentials{
		Region:          r.Header.Get(HeaderRegion),
		AccessKeyID:     r.Header.Get(HeaderAccessKeyID),
		SecretAccessKey: r.Header.Get(HeaderSecretAccessKey),
		BucketName:      r.Header.Get(HeaderBucket),
		Endpoint:        r.Header.Get(HeaderEndpoint),
	}
}

func (s *Server) testConnection(w http.ResponseWriter, r *http.Request) {
	res, err := s.gw.TestConnectivity(r.Context(), credentials(r))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if !res.IsAuthorized || !res.BucketExists {
		detail := res.Error
		if detail == "" {
			detail = "Bucket not found"
		}
		writeJSON(w, http.StatusOK, envelope{
			Success: false,
			Message: "Connection test failed",
			Data:    res,
			Error:   detail,
		})
		return
	}
	ok(w, "Connection test successful", res)
}

type statsResponse struct {
	*filestore.BucketStats
	RecentObjects []filestore.ObjectRecord `json:"recentObjects"`
}

func (s *Server) bucketStats(w http.ResponseWriter, r *http.Request) {
	creds := credentials(r)

	var (
		stats *filestore.BucketStats
		page  *filestore.ListPage
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		stats, err = s.gw.GetBucketStatistics(ctx, creds)
		return err
	})
	g.Go(func() (err error) {
		page, err = s.gw.ListObjects(ctx, creds, filestore.ListOptions{MaxKeys: recentObjects})
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	ok(w, "", statsResponse{BucketStats: stats, RecentObjects: page.Files})
}

func (s *Server) listObjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := filestore.ListOptions{
		Prefix:            q.Get("prefix"),
		Delimiter:         q.Get("delimiter"),
		ContinuationToken: q.Get("continuationToken"),
	}
	var err error
	if opts.Recursive, err = boolParam(q.Get("recursive")); err != nil {
		s.badRequest(w, r, "recursive must be a boolean")
		return
	}
	if v := q.Get("maxKeys"); v != "" {
		if opts.MaxKeys, err = strconv.Atoi(v); err != nil {
			s.badRequest(w, r, "maxKeys must be an integer")
			return
		}
	}

	page, err := s.gw.ListObjects(r.Context(), credentials(r), opts)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	ok(w, "", page)
}

// uploadObject accepts a multipart form with a "file" part and optional
// "key", "contentType", "acl" and "detect" fields. The part is spooled to a
// temp file and uploaded from there.
func (s *Server) uploadObject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.badRequest(w, r, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	key := r.FormValue("key")
	if key == "" {
		key = path.Base(header.Filename)
	}
	detect, err := boolParam(r.FormValue("detect"))
	if err != nil {
		s.badRequest(w, r, "detect must be a boolean")
		return
	}
	contentType := r.FormValue("contentType")
	if contentType == "" && !detect {
		contentType = header.Header.Get("Content-Type")
		// Browsers send octet-stream for anything they do not recognise.
		if contentType == "" || contentType == filestore.DefaultContentType {
			contentType = filestore.InferContentType(key)
		}
	}

	tmp, err := os.CreateTemp("", "bucketgate-upload-*")
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	defer os.Remove(tmp.Name())
	_, err = io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}

	url, err := s.gw.UploadObject(r.Context(), credentials(r), tmp.Name(), key, gateway.UploadOptions{
		ContentType:       contentType,
		ACL:               r.FormValue("acl"),
		DetectContentType: detect,
	})
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "File uploaded successfully",
		Data:    map[string]string{"key": key, "url": url},
	})
}

func (s *Server) deleteObject(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := s.gw.DeleteObject(r.Context(), credentials(r), key); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	ok(w, "File deleted successfully", nil)
}

func (s *Server) objectExists(w http.ResponseWriter, r *http.Request) {
	exists, err := s.gw.ObjectExists(r.Context(), credentials(r), r.URL.Query().Get("key"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	ok(w, "", map[string]bool{"exists": exists})
}

func (s *Server) objectMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := s.gw.GetObjectMetadata(r.Context(), credentials(r), r.URL.Query().Get("key"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	ok(w, "", meta)
}

// previewObject proxies the object body.
func (s *Server) previewObject(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	stream, err := s.gw.StreamObject(r.Context(), credentials(r), key)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	defer stream.Body.Close()

	w.Header().Set("Content-Type", stream.ContentType)
	if stream.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	}
	w.Header().Set("Content-Disposition", "inline")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, stream.Body); err != nil {
		logger.FromContext(r.Context()).WarnWith("preview interrupted", err, map[string]interface{}{"key": key})
	}
}

func (s *Server) objectRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err1 := strconv.ParseInt(q.Get("start"), 10, 64)
	end, err2 := strconv.ParseInt(q.Get("end"), 10, 64)
	if err1 != nil || err2 != nil {
		s.badRequest(w, r, "start and end must be integers")
		return
	}

	text, err := s.gw.GetObjectByteRange(r.Context(), credentials(r), q.Get("key"), start, end)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	ok(w, "", map[string]any{"content": text, "start": start, "end": end})
}

func (s *Server) presignOptions(r *http.Request) (gateway.PresignOptions, bool) {
	q := r.URL.Query()
	opts := gateway.PresignOptions{
		ContentDisposition: q.Get("contentDisposition"),
		ContentType:        q.Get("contentType"),
		ACL:                q.Get("acl"),
	}
	if v := q.Get("expiresIn"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return opts, false
		}
		opts.ExpiresIn = time.Duration(secs) * time.Second
	}
	return opts, true
}

func (s *Server) downloadURL(w http.ResponseWriter, r *http.Request) {
	opts, valid := s.presignOptions(r)
	if !valid {
		s.badRequest(w, r, "expiresIn must be a positive number of seconds")
		return
	}
	u, err := s.gw.GetDownloadURL(r.Context(), credentials(r), r.URL.Query().Get("key"), opts)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	ok(w, "", map[string]string{"url": u})
}

func (s *Server) uploadURL(w http.ResponseWriter, r *http.Request) {
	opts, valid := s.presignOptions(r)
	if !valid {
		s.badRequest(w, r, "expiresIn must be a positive number of seconds")
		return
	}
	u, err := s.gw.GetUploadURL(r.Context(), credentials(r), r.URL.Query().Get("key"), opts)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	ok(w, "", map[string]string{"url": u})
}

type copyRequest struct {
	SourceKey      string `json:"sourceKey"`
	DestinationKey string `json:"destinationKey"`
}

func (s *Server) copyObject(w http.ResponseWriter, r *http.Request) {
	var req copyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.gw.CopyObject(r.Context(), credentials(r), req.SourceKey, req.DestinationKey); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	ok(w, "File copied successfully", nil)
}

type renameRequest struct {
	OldKey string `json:"oldKey"`
	NewKey string `json:"newKey"`
}

func (s *Server) renameObject(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !s.decode(w, r, &req) {
		return
	}
	done, err := s.gw.RenameObject(r.Context(), credentials(r), req.OldKey, req.NewKey)
	if err != nil {
		s.fail(w, r, err, done)
		return
	}
	ok(w, "File renamed successfully", done)
}

func (s *Server) listFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.gw.ListFolders(r.Context(), credentials(r), r.URL.Query().Get("prefix"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	ok(w, "", map[string]any{"folders": folders})
}

type folderRequest struct {
	Prefix string `json:"prefix"`
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	var req folderRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.gw.CreateFolder(r.Context(), credentials(r), req.Prefix); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{
		Success: true,
		Message: "Folder created successfully",
		Data:    map[string]string{"prefix": filestore.FolderKey(req.Prefix)},
	})
}

func (s *Server) deleteFolder(w http.ResponseWriter, r *http.Request) {
	done, err := s.gw.DeleteFolder(r.Context(), credentials(r), r.URL.Query().Get("prefix"))
	if err != nil {
		s.fail(w, r, err, done)
		return
	}
	ok(w, "Folder deleted successfully", done)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.badRequest(w, r, "malformed JSON body")
		return false
	}
	return true
}

func boolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
