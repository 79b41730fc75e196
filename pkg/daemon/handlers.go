package daemon

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wivrn/wivrn-host/pkg/events"
	"github.com/wivrn/wivrn-host/pkg/native"
	"github.com/wivrn/wivrn-host/pkg/types"
	"github.com/wivrn/wivrn-host/pkg/utils/ginlog"
	"github.com/wivrn/wivrn-host/pkg/version"
)

type handlers struct {
	rt  *Runtime
	hub *events.EventHub
	// closing ends event streams when the server shuts down.
	closing <-chan struct{}
}

func (h *handlers) permissionsResult(c *gin.Context) {
	var req types.PermissionsResult
	if err := c.BindJSON(&req); err != nil {
		ginlog.Abort(c, http.StatusBadRequest, err)
		return
	}
	h.rt.OnRequestPermissionsResult(req.RequestCode, req.Permissions, req.GrantResults)
	c.Status(http.StatusNoContent)
}

func (h *handlers) newIntent(c *gin.Context) {
	var intent native.Intent
	if err := c.BindJSON(&intent); err != nil {
		ginlog.Abort(c, http.StatusBadRequest, err)
		return
	}
	h.rt.OnNewIntent(intent)
	c.Status(http.StatusNoContent)
}

func (h *handlers) activityResult(c *gin.Context) {
	var req types.ActivityResult
	if err := c.BindJSON(&req); err != nil {
		ginlog.Abort(c, http.StatusBadRequest, err)
		return
	}
	h.rt.OnActivityResult(req.RequestCode, req.ResultCode, req.Data)
	c.Status(http.StatusNoContent)
}

func (h *handlers) batteryChanged(c *gin.Context) {
	var status native.BatteryStatus
	if err := c.BindJSON(&status); err != nil {
		ginlog.Abort(c, http.StatusBadRequest, err)
		return
	}
	h.rt.OnBatteryChanged(status)
	c.Status(http.StatusNoContent)
}

func (h *handlers) message(c *gin.Context) {
	var req types.Message
	if err := c.BindJSON(&req); err != nil {
		ginlog.Abort(c, http.StatusBadRequest, err)
		return
	}
	h.rt.SendMessage(req.Name, req.Arg)
	c.Status(http.StatusNoContent)
}

func (h *handlers) requestPermissions(c *gin.Context) {
	var req types.PermissionRequest
	if err := c.BindJSON(&req); err != nil {
		ginlog.Abort(c, http.StatusBadRequest, err)
		return
	}
	if len(req.Permissions) == 0 {
		ginlog.Abort(c, http.StatusBadRequest, fmt.Errorf("no permissions requested"))
		return
	}
	c.IndentedJSON(http.StatusOK, types.RequestCode{RequestCode: h.rt.RequestPermissions(req.Permissions)})
}

func (h *handlers) startActivityForResult(c *gin.Context) {
	var req types.ActivityRequest
	if err := c.BindJSON(&req); err != nil {
		ginlog.Abort(c, http.StatusBadRequest, err)
		return
	}
	c.IndentedJSON(http.StatusOK, types.RequestCode{RequestCode: h.rt.StartActivityForResult(req.Intent)})
}

func (h *handlers) getRequests(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, h.rt.Pending())
}

func (h *handlers) getBattery(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, h.rt.Battery())
}

func (h *handlers) getStats(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, h.rt.Stats())
}

func (h *handlers) getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func (h *handlers) streamEvents(c *gin.Context) {
	replay := 0
	if q := c.Query("replay"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			ginlog.Abort(c, http.StatusBadRequest, fmt.Errorf("invalid replay %q", q))
			return
		}
		replay = n
	}

	ch := h.hub.SubscribeReplay(replay)
	defer h.hub.Unsubscribe(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	// Send headers now so clients see the stream open before any event.
	c.Writer.Flush()

	c.Stream(func(_ io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-c.Request.Context().Done():
			return false
		case <-h.closing:
			return false
		}
	})
}
