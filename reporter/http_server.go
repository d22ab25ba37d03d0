// This is a http type of reporter.
// It publishes the factory's read accessors on http routes.

package reporter

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/TEENet-io/custody-go/factory"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

const (
	ROUTE_HELLO             = "/hello"
	ROUTE_MINT_REQUEST      = "/mint/request"
	ROUTE_MINT_LENGTH       = "/mint/length"
	ROUTE_BURN_REQUEST      = "/burn/request"
	ROUTE_BURN_LENGTH       = "/burn/length"
	ROUTE_CUSTODIAN_DEPOSIT = "/deposit/custodian"
	ROUTE_MERCHANT_DEPOSIT  = "/deposit/merchant"
)

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data source
	factory *factory.Factory
}

func NewHttpReporter(serverIP string, serverPort string, f *factory.Factory) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		factory:    f,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET(ROUTE_HELLO, Hello)
	router.GET(ROUTE_MINT_REQUEST, h.MintRequest)
	router.GET(ROUTE_MINT_LENGTH, h.MintLength)
	router.GET(ROUTE_BURN_REQUEST, h.BurnRequest)
	router.GET(ROUTE_BURN_LENGTH, h.BurnLength)
	router.GET(ROUTE_CUSTODIAN_DEPOSIT, h.CustodianDeposit)
	router.GET(ROUTE_MERCHANT_DEPOSIT, h.MerchantDeposit)

	return router
}

// Hook up router & ip:port
func (h *HttpReporter) Run() {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	if err := router.Run(address); err != nil {
		panic(err)
	}
}

// Example route.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

func (h *HttpReporter) MintRequest(c *gin.Context) {
	h.request(c, h.factory.GetMintRequest)
}

func (h *HttpReporter) BurnRequest(c *gin.Context) {
	h.request(c, h.factory.GetBurnRequest)
}

func (h *HttpReporter) request(c *gin.Context, get func(uint64) (*factory.RequestInfo, error)) {
	nonce, err := strconv.ParseUint(c.Query("nonce"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nonce must be an unsigned integer"})
		return
	}

	info, err := get(nonce)
	if err != nil {
		if errors.Is(err, factory.ErrNonceOutOfRange) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": info})
}

func (h *HttpReporter) MintLength(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"length": h.factory.GetMintRequestsLength()})
}

func (h *HttpReporter) BurnLength(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"length": h.factory.GetBurnRequestsLength()})
}

func (h *HttpReporter) CustodianDeposit(c *gin.Context) {
	h.deposit(c, h.factory.GetCustodianBtcDepositAddress)
}

func (h *HttpReporter) MerchantDeposit(c *gin.Context) {
	h.deposit(c, h.factory.GetMerchantBtcDepositAddress)
}

func (h *HttpReporter) deposit(c *gin.Context, get func(ethcommon.Address) (string, error)) {
	merchant := c.Query("merchant")
	if !ethcommon.IsHexAddress(merchant) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "merchant must be a hex address"})
		return
	}

	addr, err := get(ethcommon.HexToAddress(merchant))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if addr == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no deposit address on file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"btc_address": addr})
}
