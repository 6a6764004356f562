// This is a http type of reporter.
// It reads the coin store and publishes read-only views on the http routes.

package reporter

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/coin-store/coinstore"
	"github.com/TEENet-io/coin-store/common"
	"github.com/TEENet-io/coin-store/elements"
)

const (
	ROUTE_HEALTH    = "/health"
	ROUTE_UNSPENT   = "/unspent"
	ROUTE_SCRIPTS   = "/scripts"
	ROUTE_CONTRACTS = "/contracts"
	ROUTE_TOKENS    = "/tokens"
	ROUTE_QUERY     = "/query"
	ROUTE_METRICS   = "/metrics"

	maxFiltersPerQuery = 64
	shutdownTimeout    = 5 * time.Second
)

// CoinReader is the read side of the coin store.
type CoinReader interface {
	Query(ctx context.Context, filters []*coinstore.Filter) ([]*coinstore.QueryResult, error)
	ListUnspentOutpoints(ctx context.Context) ([]elements.OutPoint, error)
	ListTrackedScriptPubKeys(ctx context.Context) ([][]byte, error)
	ListContractsBySource(ctx context.Context, source string) ([]*coinstore.ContractInfo, error)
	ListTokensByTag(ctx context.Context, tag string) ([]*coinstore.TokenInfo, error)
	GetContractByToken(ctx context.Context, asset elements.AssetID) (*coinstore.TokenInfo, bool, error)
}

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data source
	coins CoinReader
}

func NewHttpReporter(serverIP string, serverPort string, coins CoinReader) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		coins:      coins,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET(ROUTE_HEALTH, Health)
	router.GET(ROUTE_UNSPENT, h.Unspent)
	router.GET(ROUTE_SCRIPTS, h.Scripts)
	router.GET(ROUTE_CONTRACTS, h.Contracts)
	router.GET(ROUTE_TOKENS, h.TokensByTag)
	router.GET(ROUTE_TOKENS+"/:asset_id", h.TokenByAsset)
	router.POST(ROUTE_QUERY, h.Query)
	router.GET(ROUTE_METRICS, gin.WrapH(promhttp.Handler()))

	return router
}

// RunContext serves until ctx is cancelled, then shuts the server down.
func (h *HttpReporter) RunContext(ctx context.Context) error {
	srv := &http.Server{
		Addr:    h.serverIP + ":" + h.serverPort,
		Handler: h.SetupRouter(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.WithField("address", srv.Addr).Info("http reporter listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func (h *HttpReporter) Unspent(c *gin.Context) {
	ops, err := h.coins.ListUnspentOutpoints(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := make([]string, 0, len(ops))
	for _, op := range ops {
		data = append(data, op.String())
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *HttpReporter) Scripts(c *gin.Context) {
	scripts, err := h.coins.ListTrackedScriptPubKeys(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := make([]string, 0, len(scripts))
	for _, s := range scripts {
		data = append(data, hex.EncodeToString(s))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *HttpReporter) Contracts(c *gin.Context) {
	source := c.Query("source")
	if source == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be provided"})
		return
	}

	infos, err := h.coins.ListContractsBySource(c.Request.Context(), source)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := make([]ContractJSON, 0, len(infos))
	for _, info := range infos {
		data = append(data, newContractJSON(info))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *HttpReporter) TokensByTag(c *gin.Context) {
	tag := c.Query("tag")
	if tag == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tag must be provided"})
		return
	}

	tokens, err := h.coins.ListTokensByTag(c.Request.Context(), tag)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := make([]TokenJSON, 0, len(tokens))
	for _, t := range tokens {
		data = append(data, newTokenJSON(t))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *HttpReporter) TokenByAsset(c *gin.Context) {
	asset, err := elements.AssetIDFromHex(common.Trim0xPrefix(c.Param("asset_id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, ok, err := h.coins.GetContractByToken(c.Request.Context(), asset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No token found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newTokenJSON(token)})
}

func (h *HttpReporter) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Filters) == 0 || len(req.Filters) > maxFiltersPerQuery {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expect 1 to 64 filters"})
		return
	}

	filters := make([]*coinstore.Filter, 0, len(req.Filters))
	for i := range req.Filters {
		f, err := req.Filters[i].toFilter()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filters = append(filters, f)
	}

	results, err := h.coins.Query(c.Request.Context(), filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data := make([]ResultJSON, 0, len(results))
	for _, r := range results {
		data = append(data, newResultJSON(r))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}
