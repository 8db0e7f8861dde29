package assemble

import (
	"context"
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pksim/pksim/internal/dataset"
	"github.com/pksim/pksim/internal/engine"
	"github.com/pksim/pksim/internal/integrators"
	"github.com/pksim/pksim/internal/pkmodels"
	"github.com/pksim/pksim/internal/simcore"
	"github.com/pksim/pksim/internal/table"
	"github.com/pksim/pksim/internal/tgrid"
)

func TestPipeline(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline Suite")
}

func rk4() func() simcore.Integrator {
	return func() simcore.Integrator { return integrators.NewRK4() }
}

var _ = Describe("Run", func() {
	var model *pkmodels.OneCmtIV

	BeforeEach(func() {
		model = pkmodels.NewOneCmtIV()
		model.CL = 2
		model.V = 10
	})

	Context("single individual, one bolus, uniform grid", func() {
		var res *Result

		BeforeEach(func() {
			data, err := dataset.New([]dataset.Record{
				{ID: "1", Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 1},
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := engine.NewBuilder().
				Req("CP").
				Design(tgrid.Assignment{Designs: []any{tgrid.New(0, 24, 6)}}).
				Build()
			Expect(err).NotTo(HaveOccurred())

			res, err = Run(context.Background(), model, rk4(), data, nil, cfg)
			Expect(err).NotTo(HaveOccurred())
		})

		It("produces one row per grid time and nothing else", func() {
			times, err := res.Table.Times()
			Expect(err).NotTo(HaveOccurred())
			Expect(times).To(Equal([]float64{0, 6, 12, 18, 24}))
		})

		It("outputs only the requested capture", func() {
			Expect(res.Table.Columns()).To(Equal([]string{"ID", "time", "CP"}))
		})

		It("reports the dose in the first observation", func() {
			cp, err := res.Table.Column("CP")
			Expect(err).NotTo(HaveOccurred())
			Expect(cp[0]).To(BeNumerically("~", 10, 1e-6)) // 100 / V
		})

		It("follows first-order elimination", func() {
			cp, _ := res.Table.Column("CP")
			k := model.CL / model.V
			for i, t := range []float64{0, 6, 12, 18, 24} {
				Expect(cp[i]).To(BeNumerically("~", 10*math.Exp(-k*t), 1e-5))
			}
		})

		It("records no failures", func() {
			Expect(res.Failed()).To(BeFalse())
			Expect(res.Diagnostics).To(HaveLen(1))
		})
	})

	Context("population run with per-individual designs", func() {
		It("assigns grids through the design column", func() {
			data, err := dataset.New([]dataset.Record{
				{ID: "1", Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 1},
				{ID: "2", Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 1},
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			idata := dataset.NewIData([]string{"GRP"}, []dataset.IRow{
				{ID: "1", Values: map[string]float64{"GRP": 1}},
				{ID: "2", Values: map[string]float64{"GRP": 2}},
			})

			cfg, err := engine.NewBuilder().
				Req("CP").
				Design(tgrid.Assignment{
					Descol: "GRP",
					Designs: []any{
						tgrid.New(0, 12, 6),  // rows 0, 6, 12
						tgrid.New(0, 24, 12), // rows 0, 12, 24
					},
				}).
				Build()
			Expect(err).NotTo(HaveOccurred())

			res, err := Run(context.Background(), model, rk4(), data, idata, cfg)
			Expect(err).NotTo(HaveOccurred())

			var t1, t2 []float64
			for _, r := range res.Table.Rows() {
				switch r.ID {
				case "1":
					t1 = append(t1, r.Values[0])
				case "2":
					t2 = append(t2, r.Values[0])
				}
			}
			Expect(t1).To(Equal([]float64{0, 6, 12}))
			Expect(t2).To(Equal([]float64{0, 12, 24}))
		})
	})

	Context("strict mode", func() {
		It("turns an individual failure into a run error", func() {
			data, err := dataset.New([]dataset.Record{
				{ID: "1", Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 1},
				{ID: "2", Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 9},
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := engine.NewBuilder().
				Strict(true).
				Design(tgrid.Assignment{Designs: []any{tgrid.New(0, 12, 6)}}).
				Build()
			Expect(err).NotTo(HaveOccurred())

			_, err = Run(context.Background(), model, rk4(), data, nil, cfg)
			Expect(err).To(HaveOccurred())

			var dataErr *simcore.DataError
			Expect(err).To(BeAssignableToTypeOf(dataErr))
		})
	})

	Context("configuration problems", func() {
		It("fails before computing when a requested item is unknown", func() {
			cfg := engine.DefaultRunConfig()
			cfg.ReqList = []string{"XYZ"}

			_, err := Run(context.Background(), model, rk4(), nil, nil, cfg)

			var cfgErr *simcore.ConfigError
			Expect(err).To(BeAssignableToTypeOf(cfgErr))
		})
	})

	Context("augmented output over a dosing regimen", func() {
		It("adds observation rows at unsampled dose times", func() {
			data, err := dataset.New([]dataset.Record{
				{ID: "1", Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 1},
				{ID: "1", Time: 7, Evid: dataset.EvidDose, Amt: 100, Cmt: 1},
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := engine.NewBuilder().
				Req("CP").
				ObsOnly(true).
				ObsAug(true).
				Design(tgrid.Assignment{Designs: []any{tgrid.New(0, 12, 6)}}).
				Build()
			Expect(err).NotTo(HaveOccurred())

			res, err := Run(context.Background(), model, rk4(), data, nil, cfg)
			Expect(err).NotTo(HaveOccurred())

			times, _ := res.Table.Times()
			// grid rows 0, 6, 12 plus the augmented row at the t=7 dose;
			// the t=0 dose coincides with a grid time and adds nothing
			Expect(times).To(Equal([]float64{0, 6, 7, 12}))

			cp, _ := res.Table.Column("CP")
			for _, v := range cp {
				Expect(table.IsNA(v)).To(BeFalse())
			}
		})
	})

	Context("time scaling", func() {
		It("multiplies reported times without touching the dynamics", func() {
			data, err := dataset.New([]dataset.Record{
				{ID: "1", Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 1},
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := engine.NewBuilder().
				Req("CP").
				TScale(1.0 / 24).
				Design(tgrid.Assignment{Designs: []any{tgrid.New(0, 24, 12)}}).
				Build()
			Expect(err).NotTo(HaveOccurred())

			res, err := Run(context.Background(), model, rk4(), data, nil, cfg)
			Expect(err).NotTo(HaveOccurred())

			times, _ := res.Table.Times()
			Expect(times[len(times)-1]).To(BeNumerically("~", 1.0, 1e-12))

			cp, _ := res.Table.Column("CP")
			k := model.CL / model.V
			Expect(cp[len(cp)-1]).To(BeNumerically("~", 10*math.Exp(-k*24), 1e-5))
		})
	})
})
