package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultChecklists returns the built-in per-type label tables. Each call
// returns a fresh copy so callers can't mutate the shipped defaults.
func DefaultChecklists() map[string][]string {
	out := make(map[string][]string, len(defaultChecklists))
	for equipmentType, labels := range defaultChecklists {
		out[equipmentType] = append([]string(nil), labels...)
	}
	return out
}

// loadChecklistsFile replaces the label tables wholesale from a JSON file of
// the shape {"type": ["label", ...], ...}.
func loadChecklistsFile(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lists map[string][]string
	if err := json.Unmarshal(raw, &lists); err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return nil, fmt.Errorf("no checklists defined")
	}
	for equipmentType, labels := range lists {
		if len(labels) == 0 {
			return nil, fmt.Errorf("checklist for %q is empty", equipmentType)
		}
	}
	return lists, nil
}

var defaultChecklists = map[string][]string{
	"excavator": {
		"BUCKET – Excessive wear or damage, cracks",
		"BUCKET CYLINDER & LINKAGE – Excessive wear or damage, leaks",
		"STICK – Excessive wear or damage, cracks",
		"BOOM CYLINDERS – Excessive wear or damage, leaks",
		"UNDERNEATH OF MACHINE FINAL DRIVE – Damage, leaks",
		"CAB – Damage, cracks",
		"UNDERCARRIAGE – Wear, damage, tension",
		"STEPS & HANDHOLDS – Condition & cleanliness",
		"BATTERIES & HOLD DOWNS – Cleanliness, loose bolts/nuts",
		"AIR FILTER – Restriction indicator",
		"WINDSHIELD WIPERS & WASHERS – Wear, damage, fluid level",
		"ENGINE COOLANT – Fluid level",
		"RADIATOR – Fin blockage, leaks",
		"HYDRAULIC OIL TANK – Fluid level, damage, leaks",
		"FUEL TANK – Fluid level, damage, leaks",
		"FIRE EXTINGUISHER – Present/charged, damage",
		"LIGHTS – Damage / working",
		"MIRRORS – Adjusted for best visibility",
		"FUEL WATER SEPARATOR – Drain",
		"OVERALL MACHINE – Missing nuts/bolts/guards, cleanliness",
		"SWING GEAR OIL LEVEL – Fluid level",
		"ENGINE OIL – Fluid level",
		"ALL HOSES – Cracks, wear spots, leaks",
		"ALL BELTS – Tension, wear, cracks",
		"OVERALL ENGINE COMPARTMENT – Rubbish, dirt, leaks",
		"SEAT – Adjustment",
		"SEAT BELT & MOUNTING – Damage, wear, adjustment",
		"INDICATORS & GAUGES – Check, test",
		"HORN / BACKUP ALARM / LIGHTS – Proper function",
		"OVERALL CAB INTERIOR – Cleanliness",
	},
	"crane": {
		"Outriggers / stabilisers – condition & function",
		"Slew ring / rotation – smooth operation",
		"Boom / jib sections – damage / pins secure",
		"Hoist ropes / chains – wear, kinks, damage",
		"Hook block / safety latch – condition",
		"Load charts / radius indicator – present & working",
		"Limit switches / A2B – functional",
		"Hydraulic oil level – correct",
		"Tyres / tracks – condition & pressure / tension",
		"Lights / horn / reversing alarm – working",
		"Fire extinguisher – present & charged",
		"Cab controls / seatbelt – working",
	},
	"dumper": {
		"Walkaround – leaks / damage",
		"Brakes – service & park brake",
		"Steering – play / function",
		"Tyres – condition / pressure",
		"Horn / beacon / lights – working",
		"Mirrors / camera – clean & working",
		"Seatbelt – condition & working",
		"Hydraulic rams – leaks / damage",
		"Body tip – smooth operation",
		"Reversing alarm – working",
		"Fire extinguisher – present & charged",
	},
}
