package api

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogo/protobuf/proto"
	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"

	"flashcat.cloud/statsgraf/parser"
	"flashcat.cloud/statsgraf/sinks"
	"flashcat.cloud/statsgraf/sinks/util"
	"flashcat.cloud/statsgraf/types"
)

func readerGzipBody(contentEncoding string, request *http.Request) (bytes []byte, err error) {
	if contentEncoding == "gzip" {
		var (
			r *gzip.Reader
		)
		r, err = gzip.NewReader(request.Body)
		if err != nil {
			return nil, err
		}

		defer r.Close()
		bytes, err = io.ReadAll(r)
	} else {
		defer request.Body.Close()
		bytes, err = io.ReadAll(request.Body)
	}
	if err != nil || len(bytes) == 0 {
		return nil, errors.New("request parameter error")
	}

	return bytes, nil
}

// DecodeWriteRequest from an io.Reader into a prompb.WriteRequest, handling
// snappy decompression.
func DecodeWriteRequest(r io.Reader) (*prompb.WriteRequest, error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	reqBuf, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, err
	}

	var req prompb.WriteRequest
	if err := proto.Unmarshal(reqBuf, &req); err != nil {
		return nil, err
	}

	return &req, nil
}

// pushWith runs one parser over the request body and forwards whatever it
// yields.
func pushWith(c *gin.Context, p parser.Parser) {
	body, err := readerGzipBody(c.GetHeader("Content-Encoding"), c.Request)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	mlist := types.NewMetricList()
	if err := p.Parse(body, mlist); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	ms := mlist.PopBackAll()
	if len(ms) == 0 {
		c.String(http.StatusBadRequest, "no parseable metrics in payload")
		return
	}

	respondWrite(c, sinks.WriteMetrics(ms))
}

// respondWrite maps a sink refusal onto 429 so well-behaved clients slow
// down and retry, anything else is accepted as forwarded.
func respondWrite(c *gin.Context, err error) {
	if err == nil {
		c.String(200, "forwarding...")
		return
	}
	if errors.Is(err, util.ErrNotReady) {
		c.String(http.StatusTooManyRequests, err.Error())
		return
	}
	c.String(http.StatusInternalServerError, err.Error())
}
