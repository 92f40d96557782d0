package runner

import (
	"fmt"
	"strings"

	"github.com/notargets/FDTDKernel/yee"
)

// KernelParam is one device array passed to a kernel
type KernelParam struct {
	Name   string
	IsInt  bool // int_t array, otherwise real_t
	Output bool // Written by the kernel, otherwise const
}

// KernelDefinition holds the generated source and argument order of a kernel
type KernelDefinition struct {
	Name       string
	Parameters []KernelParam
	Body       string
}

func in(name string) KernelParam     { return KernelParam{Name: name} }
func inInt(name string) KernelParam  { return KernelParam{Name: name, IsInt: true} }
func output(name string) KernelParam { return KernelParam{Name: name, Output: true} }

// Signature renders the kernel's parameter list
func (kd *KernelDefinition) Signature() string {
	params := make([]string, 0, len(kd.Parameters))
	for _, p := range kd.Parameters {
		constStr := "const "
		if p.Output {
			constStr = ""
		}
		typ := "real_t"
		if p.IsInt {
			typ = "int_t"
		}
		params = append(params, fmt.Sprintf("%s%s* %s", constStr, typ, p.Name))
	}
	return strings.Join(params, ",\n\t")
}

// Source renders the complete kernel, without the shared preamble
func (kd *KernelDefinition) Source() string {
	return fmt.Sprintf("@kernel void %s(\n\t%s\n) {\n%s}\n", kd.Name, kd.Signature(), kd.Body)
}

// cellLoop wraps a per-cell body in the partition @outer and padded cell
// @inner loops. Padding entries are negative and skipped.
func cellLoop(body string) string {
	var sb strings.Builder
	sb.WriteString("\tfor (int part = 0; part < NPART; ++part; @outer) {\n")
	sb.WriteString("\t\tfor (int i = 0; i < MAXCELLS; ++i; @inner) {\n")
	sb.WriteString("\t\t\tconst int_t c = cells[part*MAXCELLS + i];\n")
	sb.WriteString("\t\t\tif (c >= 0) {\n")
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		sb.WriteString("\t\t\t\t")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\t\t\t}\n\t\t}\n\t}\n")
	return sb.String()
}

func signLiteral(s float64) string {
	if s < 0 {
		return "(-1.0)"
	}
	return "(1.0)"
}

// fluxNames returns the flux, partner intensity and neighbor arrays of a family
func fluxNames(family yee.Family) (flux, partner, neighbor string) {
	if family == yee.Electric {
		return "D", "H", "nbMin"
	}
	return "B", "E", "nbMax"
}

// curlDifference renders partner[slot] across the neighbor along axis in
// the family's difference direction
func curlDifference(family yee.Family, t yee.CurlTerm) string {
	_, partner, neighbor := fluxNames(family)
	nb := fmt.Sprintf("%s[%d*NCELLS + c]", neighbor, t.Axis)
	self := fmt.Sprintf("%s[%d*NCELLS + c]", partner, t.Slot)
	other := fmt.Sprintf("%s[%d*NCELLS + %s]", partner, t.Slot, nb)
	if family == yee.Electric {
		return fmt.Sprintf("(%s - %s)", self, other)
	}
	return fmt.Sprintf("(%s - %s)", other, self)
}

// fluxUpdateKernel advances every flux slot of a family by the curl table
func fluxUpdateKernel(name string, family yee.Family, curl yee.CurlTable) *KernelDefinition {
	flux, partner, neighbor := fluxNames(family)
	var body strings.Builder
	for slot, terms := range curl {
		body.WriteString("{\n\treal_t sum = 0.0;\n")
		for _, t := range terms {
			body.WriteString(fmt.Sprintf("\tsum += %s * %s;\n", signLiteral(t.Sign), curlDifference(family, t)))
		}
		body.WriteString(fmt.Sprintf("\t%s[%d*NCELLS + c] += COEF * sum;\n}\n", flux, slot))
	}
	return &KernelDefinition{
		Name:       name,
		Parameters: []KernelParam{inInt("cells"), inInt(neighbor), in(partner), output(flux)},
		Body:       cellLoop(body.String()),
	}
}

// pmlKernel applies the split-field correction for each curl term whose
// derivative axis carries an active lossy layer
func pmlKernel(name string, family yee.Family, curl yee.CurlTable, numSlots int) *KernelDefinition {
	flux, partner, neighbor := fluxNames(family)
	prefix, split := "e", "dSplit"
	if family == yee.Magnetic {
		prefix, split = "h", "bSplit"
	}
	var body strings.Builder
	for slot, terms := range curl {
		body.WriteString("{\n\treal_t delta = 0.0;\n")
		for _, t := range terms {
			ax := fmt.Sprintf("%d*NCELLS + c", t.Axis)
			at := fmt.Sprintf("%d*NCELLS + c", int(t.Axis)*numSlots+slot)
			body.WriteString(fmt.Sprintf("\tif (%sPML[%s]) {\n", prefix, ax))
			body.WriteString(fmt.Sprintf("\t\tconst real_t inc = COEF * %s * %s;\n",
				signLiteral(t.Sign), curlDifference(family, t)))
			body.WriteString(fmt.Sprintf("\t\tconst real_t old = %s[%s];\n", split, at))
			body.WriteString(fmt.Sprintf("\t\tconst real_t next = %sDecay[%s]*old + %sGain[%s]*inc;\n",
				prefix, ax, prefix, ax))
			body.WriteString(fmt.Sprintf("\t\t%s[%s] = next;\n", split, at))
			body.WriteString("\t\tdelta += next - old - inc;\n\t}\n")
		}
		body.WriteString(fmt.Sprintf("\t%s[%d*NCELLS + c] += delta;\n}\n", flux, slot))
	}
	return &KernelDefinition{
		Name: name,
		Parameters: []KernelParam{inInt("cells"), inInt(neighbor), in(partner),
			inInt(prefix + "PML"), in(prefix + "Decay"), in(prefix + "Gain"), output(split), output(flux)},
		Body: cellLoop(body.String()),
	}
}

// conversionKernel divides each flux slot by the cell's constant material scale
func conversionKernel(name string, family yee.Family, numSlots int) *KernelDefinition {
	flux, intensity, scale := "D", "E", "eps"
	if family == yee.Magnetic {
		flux, intensity, scale = "B", "H", "mu"
	}
	var body strings.Builder
	for slot := 0; slot < numSlots; slot++ {
		body.WriteString(fmt.Sprintf("%s[%d*NCELLS + c] = %s[%d*NCELLS + c] / %s[c];\n",
			intensity, slot, flux, slot, scale))
	}
	return &KernelDefinition{
		Name:       name,
		Parameters: []KernelParam{inInt("cells"), in(flux), in(scale), output(intensity)},
		Body:       cellLoop(body.String()),
	}
}

// injectionKernel applies sources [lo, hi) in order on a single work item so
// that several sources on one component combine exactly as on the host
func injectionKernel(name string, family yee.Family, lo, hi int) *KernelDefinition {
	flux, _, _ := fluxNames(family)
	var body strings.Builder
	body.WriteString("\tfor (int o = 0; o < 1; ++o; @outer) {\n")
	body.WriteString("\t\tfor (int i = 0; i < 1; ++i; @inner) {\n")
	body.WriteString(fmt.Sprintf("\t\t\tfor (int k = %d; k < %d; ++k) {\n", lo, hi))
	body.WriteString("\t\t\t\tconst int_t at = srcSlot[k]*NCELLS + srcCell[k];\n")
	body.WriteString(fmt.Sprintf("\t\t\t\tif (srcHard[k]) {\n\t\t\t\t\t%s[at] = srcVal[k];\n", flux))
	body.WriteString(fmt.Sprintf("\t\t\t\t} else {\n\t\t\t\t\t%s[at] += srcVal[k];\n\t\t\t\t}\n", flux))
	body.WriteString("\t\t\t}\n\t\t}\n\t}\n")
	return &KernelDefinition{
		Name:       name,
		Parameters: []KernelParam{inInt("srcCell"), inInt("srcSlot"), inInt("srcHard"), in("srcVal"), output(flux)},
		Body:       body.String(),
	}
}
