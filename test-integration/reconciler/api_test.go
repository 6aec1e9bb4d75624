package integration

import (
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/ehving/noticesystem-sub000/internal/api/v1"
	"github.com/ehving/noticesystem-sub000/internal/conflict"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync/attempt"
	"github.com/ehving/noticesystem-sub000/test-integration/reconciler/helpers"
)

var _ = Describe("Reconciler admin API", Ordered, func() {
	var (
		tempDir string
		server  *helpers.ServerTestHelper
	)

	BeforeAll(func() {
		tempDir = createTempDir("reconciler-api-test-")
		configPath := helpers.WriteConfigYAML(tempDir, "")

		server = helpers.NewServerTestHelper(ctx, configPath)
		Expect(server.StartServer()).To(Succeed())
		server.WaitForServerReady(10 * time.Second)
	})

	AfterAll(func() {
		if server != nil {
			Expect(server.StopServer()).To(Succeed())
		}
		cleanupTempDir(tempDir)
	})

	It("reports health and readiness", func() {
		status, _ := server.Get("/health")
		Expect(status).To(Equal(http.StatusOK))

		status, _ = server.Get("/readiness")
		Expect(status).To(Equal(http.StatusOK))
	})

	It("replays a table from the source store into every other store", func() {
		helpers.SeedRole(server.Storage(), store.MySQL, "r1", "admin")
		helpers.SeedRole(server.Storage(), store.MySQL, "r2", "viewer")

		status, body := server.Post("/api/v1/resync", v1.ResyncRequest{EntityType: "ROLE", SourceStore: "MYSQL"})
		Expect(status).To(Equal(http.StatusOK), string(body))

		var resp v1.ResyncResponse
		helpers.DecodeJSON(body, &resp)
		Expect(resp.Results).To(HaveLen(1))
		Expect(resp.Results[0].Rows).To(Equal(2))
		Expect(resp.Results[0].Failed).To(BeZero())

		for _, s := range []store.Store{store.Postgres, store.SQLServer} {
			Expect(helpers.TableLen(server.Storage(), s, "role")).To(Equal(2), "store %s", s)
			Expect(helpers.RoleName(server.Storage(), s, "r1")).To(Equal("admin"))
		}
	})

	It("logs every per-target attempt", func() {
		status, body := server.Get("/api/v1/attempts?entityType=ROLE&status=SUCCESS")
		Expect(status).To(Equal(http.StatusOK), string(body))

		var page attempt.Page
		helpers.DecodeJSON(body, &page)
		Expect(page.Total).To(BeEquivalentTo(4))
		for _, a := range page.Items {
			Expect(a.SourceStore).To(Equal("MYSQL"))
			Expect(a.TargetStore).To(BeElementOf("PG", "SQLSERVER"))
		}

		status, _ = server.Get("/api/v1/attempts?targetStore=ORACLE")
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	It("finds no conflicts while the stores agree", func() {
		status, body := server.Post("/api/v1/conflicts/detect", nil)
		Expect(status).To(Equal(http.StatusOK), string(body))

		var stats conflict.DetectStats
		helpers.DecodeJSON(body, &stats)
		Expect(stats.Conflicts).To(BeZero())
		Expect(stats.Errors).To(BeZero())
	})

	Context("when a store drifts", Ordered, func() {
		var ticketID string

		BeforeAll(func() {
			// A fresh sweep puts r1 back inside the detection window.
			status, body := server.Post("/api/v1/resync", v1.ResyncRequest{EntityType: "ROLE", SourceStore: "MYSQL"})
			Expect(status).To(Equal(http.StatusOK), string(body))
			helpers.SeedRole(server.Storage(), store.Postgres, "r1", "root")
		})

		It("opens a mismatch ticket on batch detection", func() {
			status, body := server.Post("/api/v1/conflicts/detect", nil)
			Expect(status).To(Equal(http.StatusOK), string(body))

			var stats conflict.DetectStats
			helpers.DecodeJSON(body, &stats)
			Expect(stats.Conflicts).To(Equal(1))

			status, body = server.Get("/api/v1/conflicts?openOnly=true&entityType=ROLE")
			Expect(status).To(Equal(http.StatusOK), string(body))

			var page conflict.Page
			helpers.DecodeJSON(body, &page)
			Expect(page.Total).To(BeEquivalentTo(1))
			ticket := page.Items[0]
			Expect(ticket.EntityID).To(Equal("r1"))
			Expect(ticket.Status).To(Equal(entity.TicketOpen))
			Expect(ticket.ConflictType).NotTo(BeNil())
			Expect(*ticket.ConflictType).To(Equal(entity.ConflictMismatch))
			Expect(page.Aggregations.ByStatus).To(HaveKeyWithValue("OPEN", BeEquivalentTo(1)))
			ticketID = ticket.ID
		})

		It("shows the snapshot of every store", func() {
			status, body := server.Get("/api/v1/conflicts/" + ticketID)
			Expect(status).To(Equal(http.StatusOK), string(body))

			var detail conflict.Detail
			helpers.DecodeJSON(body, &detail)
			Expect(detail.Items).To(HaveLen(3))
			Expect(detail.Rows).To(HaveKey("PG"))
			Expect(string(detail.Rows["PG"])).To(ContainSubstring(`"root"`))
		})

		It("repairs the stores from the chosen source on resolve", func() {
			status, body := server.Post("/api/v1/conflicts/"+ticketID+"/resolve",
				v1.ResolveRequest{SourceStore: "MYSQL", Note: "restored from mysql"})
			Expect(status).To(Equal(http.StatusOK), string(body))

			var ticket entity.ConflictTicket
			helpers.DecodeJSON(body, &ticket)
			Expect(ticket.Status).To(Equal(entity.TicketResolved))
			Expect(ticket.ResolutionSourceStore).To(HaveValue(Equal("MYSQL")))
			Expect(ticket.ResolutionNote).To(HaveValue(ContainSubstring("restored from mysql")))

			Expect(helpers.RoleName(server.Storage(), store.Postgres, "r1")).To(Equal("admin"))
		})

		It("rejects resolving an unknown ticket", func() {
			status, _ := server.Post("/api/v1/conflicts/does-not-exist/resolve",
				v1.ResolveRequest{SourceStore: "MYSQL"})
			Expect(status).To(Equal(http.StatusNotFound))
		})
	})

	It("refuses malformed resync requests", func() {
		status, _ := server.Post("/api/v1/resync", v1.ResyncRequest{SourceStore: "ORACLE"})
		Expect(status).To(Equal(http.StatusBadRequest))

		status, _ = server.Post("/api/v1/resync", nil)
		Expect(status).To(Equal(http.StatusBadRequest))
	})
})
