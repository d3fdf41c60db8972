package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hackgods/hospital-appointment-scheduling/internal/auth"
	"github.com/hackgods/hospital-appointment-scheduling/internal/client"
)

// hospctl is the front-desk command line for the scheduling API.
func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "hospctl",
		Short:         "Hospital appointment scheduling CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("api", envOr("HOSP_API_URL", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().String("token", os.Getenv("HOSP_TOKEN"), "Bearer token, see 'hospctl token'")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(slotsCmd())
	rootCmd.AddCommand(bookCmd())
	rootCmd.AddCommand(rescheduleCmd())
	rootCmd.AddCommand(cancelCmd())
	rootCmd.AddCommand(appointmentCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// apiClient builds the client, session and request context from the
// persistent flags.
func apiClient(cmd *cobra.Command) (*client.Client, auth.Session, context.Context, context.CancelFunc) {
	api, _ := cmd.Flags().GetString("api")
	token, _ := cmd.Flags().GetString("token")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	return client.New(api), auth.Session{Token: token}, ctx, cancel
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots DOCTOR",
		Short: "List free slots of a doctor on a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			if date == "" {
				date = time.Now().Format(time.DateOnly)
			}

			c, sess, ctx, cancel := apiClient(cmd)
			defer cancel()

			slots, err := c.AvailableSlots(ctx, sess, args[0], date)
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Printf("No free slots for %s on %s.\n", args[0], date)
				return nil
			}
			fmt.Printf("%s on %s: %s\n", args[0], date, strings.Join(slots, " "))
			return nil
		},
	}
	cmd.Flags().String("date", "", "Date as YYYY-MM-DD (default today)")
	return cmd
}

func bookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req client.BookingRequest
			req.PatientID, _ = cmd.Flags().GetString("patient")
			req.DoctorID, _ = cmd.Flags().GetString("doctor")
			req.Date, _ = cmd.Flags().GetString("date")
			req.Time, _ = cmd.Flags().GetString("time")
			req.Motif, _ = cmd.Flags().GetString("motif")

			c, sess, ctx, cancel := apiClient(cmd)
			defer cancel()

			appt, err := c.Book(ctx, sess, req)
			if err != nil {
				return err
			}
			return printJSON(appt)
		},
	}
	// Missing values are reported by the API with the offending field.
	cmd.Flags().String("patient", "", "Patient code or id")
	cmd.Flags().String("doctor", "", "Doctor code or id")
	cmd.Flags().String("date", "", "Date as YYYY-MM-DD")
	cmd.Flags().String("time", "", "Start time as HH:MM")
	cmd.Flags().String("motif", "", "Reason for the visit")
	return cmd
}

func rescheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reschedule APPOINTMENT",
		Short: "Move a scheduled appointment to another slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req client.RescheduleRequest
			req.Date, _ = cmd.Flags().GetString("date")
			req.Time, _ = cmd.Flags().GetString("time")
			req.Motif, _ = cmd.Flags().GetString("motif")

			c, sess, ctx, cancel := apiClient(cmd)
			defer cancel()

			appt, err := c.Reschedule(ctx, sess, args[0], req)
			if err != nil {
				return err
			}
			return printJSON(appt)
		},
	}
	cmd.Flags().String("date", "", "New date as YYYY-MM-DD")
	cmd.Flags().String("time", "", "New start time as HH:MM")
	cmd.Flags().String("motif", "", "New reason, keeps the current one when empty")
	return cmd
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel APPOINTMENT",
		Short: "Cancel a scheduled appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, sess, ctx, cancel := apiClient(cmd)
			defer cancel()

			appt, err := c.Cancel(ctx, sess, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Appointment %s is now %s.\n", appt.AppointmentID, appt.Status)
			return nil
		},
	}
}

func appointmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointment",
		Short: "Inspect appointments",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get APPOINTMENT",
		Short: "Show one appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, sess, ctx, cancel := apiClient(cmd)
			defer cancel()

			appt, err := c.GetAppointment(ctx, sess, args[0])
			if err != nil {
				return err
			}
			return printJSON(appt)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "history PATIENT",
		Short: "Show the appointment history of a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, sess, ctx, cancel := apiClient(cmd)
			defer cancel()

			appts, err := c.PatientHistory(ctx, sess, args[0])
			if err != nil {
				return err
			}
			return printJSON(appts)
		},
	})

	return cmd
}

func doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Look up doctors",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get DOCTOR",
		Short: "Show one doctor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, sess, ctx, cancel := apiClient(cmd)
			defer cancel()

			d, err := c.GetDoctor(ctx, sess, args[0])
			if err != nil {
				return err
			}
			return printJSON(d)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List doctors",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, sess, ctx, cancel := apiClient(cmd)
			defer cancel()

			ds, err := c.ListDoctors(ctx, sess)
			if err != nil {
				return err
			}
			for _, d := range ds {
				fmt.Printf("%-7s %-30s %-18s %s\n", d.DoctorID, d.Name, d.Specialization, strings.Join(d.WorkingDays, ","))
			}
			return nil
		},
	})

	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development token with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			subject, _ := cmd.Flags().GetString("subject")
			roles, _ := cmd.Flags().GetStringSlice("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			sess, err := auth.Sign(secret, subject, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Println(sess.Token)
			return nil
		},
	}
	cmd.Flags().String("subject", "frontdesk", "Token subject")
	cmd.Flags().StringSlice("role", []string{"frontdesk"}, "Roles to embed")
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	return cmd
}
