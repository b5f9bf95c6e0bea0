package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/spf13/cobra"
)

// userContextFlags binds the optional medical history shared by ask and symptoms.
type userContextFlags struct {
	conditions  []string
	medications []string
	allergies   []string
	age         int
}

func (f *userContextFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.conditions, "condition", nil, "Known condition (repeatable)")
	cmd.Flags().StringSliceVar(&f.medications, "medication", nil, "Current medication (repeatable)")
	cmd.Flags().StringSliceVar(&f.allergies, "allergy", nil, "Known allergy (repeatable)")
	cmd.Flags().IntVar(&f.age, "age", 0, "Age in years (0 = unknown)")
}

func (f *userContextFlags) userContext() domain.UserContext {
	uc := domain.UserContext{
		Conditions:  f.conditions,
		Medications: f.medications,
		Allergies:   f.allergies,
	}
	if f.age > 0 {
		age := f.age
		uc.Age = &age
	}
	return uc
}

func AskCmd() *cobra.Command {
	var history userContextFlags

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a medical question from the indexed corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")

			ctx := context.Background()
			a, closeFn, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			answer, err := a.rag.AnswerQuery(ctx, strings.Join(args, " "), history.userContext())
			if err != nil {
				return err
			}

			if outputFormat == "json" {
				return printJSON(answer)
			}

			if answer.UrgencyNotice != "" {
				fmt.Printf("!! %s\n\n", answer.UrgencyNotice)
			}
			fmt.Println(answer.Answer)
			fmt.Printf("\nConfidence: %.2f  Urgency: %s\n", answer.Confidence, answer.UrgencyLevel)
			if len(answer.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, s := range answer.Sources {
					fmt.Printf("  - %s (%.2f)\n", s.Title, s.Score)
				}
			}
			if len(answer.FollowUpQuestions) > 0 {
				fmt.Println("\nYou might also ask:")
				for _, q := range answer.FollowUpQuestions {
					fmt.Printf("  - %s\n", q)
				}
			}
			fmt.Printf("\n%s\n", answer.Disclaimer)
			return nil
		},
	}

	history.register(cmd)
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func SymptomsCmd() *cobra.Command {
	var history userContextFlags

	cmd := &cobra.Command{
		Use:   "symptoms <symptom>...",
		Short: "Analyze a list of symptoms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, closeFn, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := a.symptoms.AnalyzeSymptoms(ctx, args, history.userContext())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	history.register(cmd)

	return cmd
}
