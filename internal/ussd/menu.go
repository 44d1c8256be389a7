package ussd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"compost-be/internal/logger"
	"compost-be/internal/payment"
	"compost-be/internal/user"
	"compost-be/internal/utils"
	"compost-be/internal/waste"

	"go.uber.org/zap"
)

// The gateway replays the whole input chain on every request
// ("1*2*50*Nakuru"), so the menu is a pure function of phone + text.

const (
	prefixContinue = "CON "
	prefixEnd      = "END "
)

var wasteTypeChoices = []waste.WasteType{
	waste.TypeAnimalManure,
	waste.TypeCoffeeHusks,
	waste.TypeRiceHulls,
	waste.TypeMaizeStalks,
	waste.TypeOther,
}

type Menu struct {
	profiles user.Repository
	wastes   waste.Service
	payments payment.Service
}

func NewMenu(profiles user.Repository, wastes waste.Service, payments payment.Service) *Menu {
	return &Menu{profiles: profiles, wastes: wastes, payments: payments}
}

// Respond produces the next screen for a session. The returned string
// carries the CON/END prefix the USSD gateway expects.
func (m *Menu) Respond(ctx context.Context, phoneNumber, text string) string {
	phone, err := utils.NormalizePhoneKE(phoneNumber)
	if err != nil {
		return prefixEnd + "Sorry, we could not read your phone number."
	}

	farmer, err := m.profiles.FindByPhone(ctx, phone)
	if err != nil {
		return prefixEnd + "This number is not registered with Captain Compost. Please sign up first."
	}

	var steps []string
	if text != "" {
		steps = strings.Split(text, "*")
	}

	if len(steps) == 0 {
		return prefixContinue + "Welcome to Captain Compost, " + farmer.Name + "\n" +
			"1. Report waste\n" +
			"2. My reports\n" +
			"3. My payments"
	}

	switch steps[0] {
	case "1":
		return m.reportFlow(ctx, farmer, steps[1:])
	case "2":
		return m.reportsScreen(ctx, farmer)
	case "3":
		return m.paymentsScreen(ctx, farmer)
	default:
		return prefixEnd + "Invalid choice."
	}
}

func (m *Menu) reportFlow(ctx context.Context, farmer *user.Profile, steps []string) string {
	switch len(steps) {
	case 0:
		var b strings.Builder
		b.WriteString(prefixContinue + "What kind of waste?\n")
		for i, t := range wasteTypeChoices {
			fmt.Fprintf(&b, "%d. %s\n", i+1, t.Label())
		}
		return strings.TrimRight(b.String(), "\n")
	case 1:
		if _, ok := pickWasteType(steps[0]); !ok {
			return prefixEnd + "Invalid waste type."
		}
		return prefixContinue + "How many kilograms?"
	case 2:
		if _, err := strconv.ParseFloat(steps[1], 64); err != nil {
			return prefixEnd + "Please enter the weight as a number."
		}
		return prefixContinue + "Where should we collect it? (e.g. Nakuru, Bahati)"
	default:
		wasteType, ok := pickWasteType(steps[0])
		if !ok {
			return prefixEnd + "Invalid waste type."
		}
		qty, err := strconv.ParseFloat(steps[1], 64)
		if err != nil || qty <= 0 {
			return prefixEnd + "Please enter the weight as a number."
		}
		location := strings.TrimSpace(strings.Join(steps[2:], " "))

		w, err := m.wastes.Report(ctx, farmer.ID, waste.ReportInput{
			WasteType:  string(wasteType),
			QuantityKg: qty,
			Location:   location,
		})
		if err != nil {
			logger.FromCtx(ctx).Error("ussd waste report failed",
				zap.String("farmer_id", farmer.ID.String()),
				zap.Error(err),
			)
			return prefixEnd + "Sorry, we could not save your report. Please try again."
		}
		return prefixEnd + fmt.Sprintf(
			"Thank you! Your %.0f kg %s report is in. We will text you once it is verified.",
			w.QuantityKg, w.WasteType.Label(),
		)
	}
}

func (m *Menu) reportsScreen(ctx context.Context, farmer *user.Profile) string {
	reports, err := m.wastes.ListByFarmer(ctx, farmer.ID)
	if err != nil {
		return prefixEnd + "Sorry, we could not load your reports."
	}
	if len(reports) == 0 {
		return prefixEnd + "You have no waste reports yet."
	}

	var b strings.Builder
	b.WriteString(prefixEnd + "Your latest reports:\n")
	for i, w := range reports {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "%d. %.0f kg %s - %s\n", i+1, w.QuantityKg, w.WasteType.Label(), w.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Menu) paymentsScreen(ctx context.Context, farmer *user.Profile) string {
	payments, err := m.payments.ListByUser(ctx, farmer.ID)
	if err != nil {
		return prefixEnd + "Sorry, we could not load your payments."
	}
	if len(payments) == 0 {
		return prefixEnd + "No payments yet."
	}

	var b strings.Builder
	b.WriteString(prefixEnd + "Your latest payments:\n")
	for i, p := range payments {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "%d. KES %.0f - %s\n", i+1, p.Amount, p.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func pickWasteType(choice string) (waste.WasteType, bool) {
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(wasteTypeChoices) {
		return "", false
	}
	return wasteTypeChoices[idx-1], true
}
