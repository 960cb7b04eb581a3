package builder

import (
	"context"
	"encoding/xml"
	"fmt"
	"path/filepath"

	"github.com/naga-nandyala/azure-cli-pkg-1/internal/logger"
)

// distributionFilename is the manifest consumed by productbuild.
const distributionFilename = "distribution.xml"

// installerScript is the distribution descriptor for productbuild.
// Element order matters to the tool: the package reference must precede the choices.
type installerScript struct {
	XMLName        xml.Name         `xml:"installer-gui-script"`
	MinSpecVersion string           `xml:"minSpecVersion,attr"`
	Title          string           `xml:"title"`
	PkgRef         packageRef       `xml:"pkg-ref"`
	ChoicesOutline choicesOutline   `xml:"choices-outline"`
	Choice         choiceDefinition `xml:"choice"`
}

// packageRef references the component package by file name.
type packageRef struct {
	ID       string `xml:"id,attr"`
	FileName string `xml:",chardata"`
}

type choicesOutline struct {
	Lines []choiceLine `xml:"line"`
}

type choiceLine struct {
	Choice string `xml:"choice,attr"`
}

// choiceDefinition is the single installation choice, pre-selected.
type choiceDefinition struct {
	ID            string       `xml:"id,attr"`
	Title         string       `xml:"title,attr"`
	Description   string       `xml:"description,attr"`
	StartSelected string       `xml:"start_selected,attr"`
	PkgRef        choicePkgRef `xml:"pkg-ref"`
}

type choicePkgRef struct {
	ID string `xml:"id,attr"`
}

// writeDistributionXML generates the manifest referencing the component
// package and returns its path. The referenced package is checked for
// existence as a diagnostic only; the check never aborts the build.
func (b *builder) writeDistributionXML(
	ctx context.Context,
	workDir, version, componentPkgName string,
) (string, error) {
	choiceID := b.cfg.AppName + "-choice"

	doc := installerScript{
		MinSpecVersion: "2",
		Title:          fmt.Sprintf("%s %s", b.cfg.DisplayName, version),
		PkgRef: packageRef{
			ID:       b.cfg.PkgIdentifier,
			FileName: componentPkgName,
		},
		ChoicesOutline: choicesOutline{
			Lines: []choiceLine{{Choice: choiceID}},
		},
		Choice: choiceDefinition{
			ID:            choiceID,
			Title:         b.cfg.DisplayName,
			Description:   fmt.Sprintf("Install %s %s command-line tool", b.cfg.DisplayName, version),
			StartSelected: "true",
			PkgRef:        choicePkgRef{ID: b.cfg.PkgIdentifier},
		},
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal distribution manifest: %w", err)
	}

	contents := []byte(xml.Header + string(data) + "\n")
	manifestPath := filepath.Join(workDir, distributionFilename)

	if err := b.fsys.WriteFile(manifestPath, contents, defaultFilePermissions); err != nil {
		return "", fmt.Errorf("write distribution manifest: %w", err)
	}

	logger.InfoKV(ctx, "Created distribution XML", "path", manifestPath)
	logger.Infof(ctx, "Distribution XML content:\n%s", contents)

	// Diagnostic only: verify the referenced component package is where
	// productbuild will look for it.
	expected := filepath.Join(workDir, componentPkgName)
	if exists, err := b.fsys.Exists(expected); err == nil && exists {
		logger.InfoKV(ctx, "Component package found", "path", expected)
	} else {
		logger.WarnKV(ctx, "Component package missing from staging directory", "path", expected)
	}

	return manifestPath, nil
}
