// Package report renders tableau results for the console.
//
// A Printer writes the outcome of Tableau.Run, the stage by stage listing of
// Tableau.Trace and the automaton summary of Tableau.Inspect. Plain printers
// produce the bare text format, which is stable and suitable for diffing;
// styled printers color the same text with lipgloss using the color profile
// of the destination writer.
//
// # Usage
//
//	p := report.New(os.Stdout, report.Styled())
//	res, err := tab.Run(ctx, "pa", "", 10)
//	if err != nil {
//	    return err
//	}
//	return p.Run(res)
package report
