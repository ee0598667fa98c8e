package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"radbiocalc/internal/models"
	"radbiocalc/pkg/config"
	"radbiocalc/pkg/dvh"
	"radbiocalc/pkg/ntcp"
	"radbiocalc/pkg/tcp"
	"radbiocalc/pkg/therapeutic"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "radbiocalc.yaml", "Path to YAML configuration file")
	tumorType := flag.String("tumor", "prostate", "Tumor type for TCP calculation")
	tcpModelName := flag.String("tcp-model", "poisson", "TCP model (poisson, lq, webb_nahum, logistic)")
	ntcpModelName := flag.String("ntcp-model", "lkb", "NTCP model (lkb, critical_volume, relative_seriality, logistic, poisson)")
	prescription := flag.Float64("prescription", 70.0, "Prescription dose in Gy")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration file and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config file: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		os.Exit(0)
	}

	// Load configuration (falls back to built-in defaults if the file is absent)
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	tcpModel, err := tcp.ParseModel(*tcpModelName)
	if err != nil {
		log.Fatalf("Invalid TCP model: %v", err)
	}
	ntcpModel, err := ntcp.ParseModel(*ntcpModelName)
	if err != nil {
		log.Fatalf("Invalid NTCP model: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("RADBIOCALC: TCP/NTCP RADIOBIOLOGICAL TREATMENT PLAN EVALUATION")
	fmt.Println("================================")

	// Build a demonstration plan with synthetic DVHs for a target and
	// three organs at risk
	plan := demoPlan(*tumorType, *prescription)

	tcpCalc := tcp.NewCalculatorWithParameters(cfg.TumorTypes)
	ntcpCalc := ntcp.NewCalculatorWithParameters(cfg.Organs)

	startTime := time.Now()

	// Step 1: DVH analysis for the target
	fmt.Println("\nStep 1: Dose-volume histogram analysis...")
	target := plan.Targets()[0]
	report, err := target.DVH.Report(target.Name, target.PrescriptionDose)
	if err != nil {
		log.Fatalf("DVH analysis failed: %v", err)
	}
	printDVHReport(report)

	// Step 2: Tumor control probability for the target
	fmt.Println("\nStep 2: Tumor control probability...")
	tcpResult, err := tcpCalc.DVHTCP(target.DVH, target.TumorType, tcpModel)
	if err != nil {
		log.Fatalf("TCP calculation failed: %v", err)
	}
	printTCPResult(tcpResult)

	// Step 3: Normal tissue complication probability for each organ at risk
	fmt.Println("\nStep 3: Normal tissue complication probabilities...")
	var organResults []ntcp.Result
	for _, s := range plan.OrgansAtRisk() {
		res, err := ntcpCalc.DVHNTCP(s.DVH, s.Organ, ntcpModel)
		if err != nil {
			log.Fatalf("NTCP calculation failed for %s: %v", s.Name, err)
		}
		printNTCPResult(s.Name, res)
		organResults = append(organResults, res)
	}

	// Step 4: Combine into a therapeutic ratio summary
	fmt.Println("\nStep 4: Therapeutic ratio analysis...")
	summary := therapeutic.Aggregate(tcpResult, organResults)
	elapsed := time.Since(startTime)

	fmt.Printf("\nEvaluation completed in %.3f seconds\n", elapsed.Seconds())
	printSummary(summary)
}

// demoPlan builds a synthetic treatment plan: a target DVH shaped as a
// sigmoid falloff around the prescription dose and three organ-at-risk
// DVHs with exponential dose falloff
func demoPlan(tumorType string, prescription float64) *models.Plan {
	return &models.Plan{
		Name: "demo",
		Structures: []models.Structure{
			{
				Name:             "PTV",
				Kind:             models.Target,
				TumorType:        tumorType,
				PrescriptionDose: prescription,
				DVH:              sigmoidDVH(80, 100, prescription, 0.3),
			},
			{
				Name:  "Lung",
				Kind:  models.OrganAtRisk,
				Organ: "lung",
				DVH:   exponentialDVH(50, 100, 15),
			},
			{
				Name:  "Heart",
				Kind:  models.OrganAtRisk,
				Organ: "heart",
				DVH:   exponentialDVH(40, 100, 20),
			},
			{
				Name:  "SpinalCord",
				Kind:  models.OrganAtRisk,
				Organ: "spinal_cord",
				DVH:   exponentialDVH(45, 100, 25),
			},
		},
	}
}

// sigmoidDVH generates a target-like cumulative DVH: volume stays near
// 100% until the shoulder dose and then falls off with the given slope
func sigmoidDVH(maxDose float64, bins int, shoulder, slope float64) dvh.DoseVolumeHistogram {
	doses := make([]float64, bins)
	volumes := make([]float64, bins)
	for i := 0; i < bins; i++ {
		d := maxDose * float64(i) / float64(bins-1)
		doses[i] = d
		volumes[i] = 100.0 - 100.0/(1.0+math.Exp(-slope*(d-shoulder)))
	}
	return dvh.DoseVolumeHistogram{Dose: doses, VolumePercent: volumes}
}

// exponentialDVH generates an organ-at-risk DVH with exponential volume
// falloff characterized by the decay constant in Gy
func exponentialDVH(maxDose float64, bins int, decay float64) dvh.DoseVolumeHistogram {
	doses := make([]float64, bins)
	volumes := make([]float64, bins)
	for i := 0; i < bins; i++ {
		d := maxDose * float64(i) / float64(bins-1)
		doses[i] = d
		volumes[i] = 100.0 * math.Exp(-d/decay)
	}
	return dvh.DoseVolumeHistogram{Dose: doses, VolumePercent: volumes}
}

func printDVHReport(r dvh.Report) {
	fmt.Printf("\nDVH Report for %s:\n", r.StructureName)
	fmt.Printf("=======================================\n")
	fmt.Printf("Mean dose:   %.2f Gy\n", r.Statistics.MeanDose)
	fmt.Printf("Median dose: %.2f Gy\n", r.Statistics.MedianDose)
	fmt.Printf("Dose range:  %.2f - %.2f Gy\n", r.Statistics.MinDose, r.Statistics.MaxDose)
	for _, p := range dvh.DefaultPercentiles {
		fmt.Printf("D%g: %.2f Gy\n", p, r.Dx[p])
	}
	for _, d := range dvh.DefaultDoseLevels {
		fmt.Printf("V%gGy: %.2f%%\n", d, r.Vx[d])
	}
	fmt.Printf("Homogeneity index: %.3f\n", r.Homogeneity.Index)
	if r.Conformity != nil {
		fmt.Printf("Coverage at %.1f Gy: %.2f%%\n", r.Conformity.PrescriptionDose, r.Conformity.Coverage*100)
	}
	fmt.Printf("EUD (tumor exponent):  %.2f Gy\n", r.EUDTumor)
	fmt.Printf("EUD (normal exponent): %.2f Gy\n", r.EUDNormal)
}

func printTCPResult(r tcp.DVHResult) {
	fmt.Printf("\nTCP (%s model, %s):\n", r.Model, r.TumorType)
	fmt.Printf("=======================================\n")
	fmt.Printf("Total TCP: %.4f\n", r.TotalTCP)
	fmt.Printf("Mean TCP:  %.4f\n", r.MeanTCP)
	fmt.Printf("TCP at D95: %.4f\n", r.TCPAtD95)
	fmt.Printf("TCP at D50: %.4f\n", r.TCPAtD50)
	fmt.Printf("Mean dose: %.2f Gy, Max dose: %.2f Gy\n", r.MeanDose, r.MaxDose)
}

func printNTCPResult(name string, r ntcp.Result) {
	fmt.Printf("%-12s NTCP=%.4f  mean=%.2f Gy  max=%.2f Gy  V20=%.1f%%  (%s)\n",
		name, r.NTCP, r.MeanDose, r.MaxDose, r.V20, r.Endpoint)
}

func printSummary(s therapeutic.Summary) {
	fmt.Printf("\nTherapeutic Ratio Summary (%s):\n", s.TumorType)
	fmt.Printf("=======================================\n")
	fmt.Printf("TCP:                            %.4f\n", s.TCP)
	fmt.Printf("Total NTCP:                     %.4f\n", s.TotalNTCP)
	fmt.Printf("Complication-free probability:  %.4f\n", s.ComplicationFreeProbability)
	fmt.Printf("Uncomplicated cure probability: %.4f\n", s.UncomplicatedCureProbability)
	fmt.Printf("TCP/NTCP ratio:                 %.4f\n", s.RatioTCPNTCP)
	fmt.Printf("UCP/NTCP ratio:                 %.4f\n", s.RatioUCPNTCP)
	fmt.Println("\nPer-organ complications:")
	for _, o := range s.Organs {
		fmt.Printf("- %-12s %-20s %.4f\n", o.Organ, o.Endpoint, o.NTCP)
	}
}
