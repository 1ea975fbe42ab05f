// Package labels holds the class table of the plant disease model.
package labels

import (
	"fmt"
)

// classNames must match the index order used when the model was trained.
var classNames = [...]string{
	"Apple___Apple_scab",
	"Apple___Black_rot",
	"Apple___Cedar_apple_rust",
	"Apple___healthy",
	"Blueberry___healthy",
	"Cherry_(including_sour)___Powdery_mildew",
	"Cherry_(including_sour)___healthy",
	"Corn_(maize)___Cercospora_leaf_spot Gray_leaf_spot",
	"Corn_(maize)___Common_rust_",
	"Corn_(maize)___Northern_Leaf_Blight",
	"Corn_(maize)___healthy",
	"Grape___Black_rot",
	"Grape___Esca_(Black_Measles)",
	"Grape___Leaf_blight_(Isariopsis_Leaf_Spot)",
	"Grape___healthy",
	"Orange___Haunglongbing_(Citrus_greening)",
	"Peach___Bacterial_spot",
	"Peach___healthy",
	"Pepper,_bell___Bacterial_spot",
	"Pepper,_bell___healthy",
	"Potato___Early_blight",
	"Potato___Late_blight",
	"Potato___healthy",
	"Raspberry___healthy",
	"Soybean___healthy",
	"Squash___Powdery_mildew",
	"Strawberry___Leaf_scorch",
	"Strawberry___healthy",
	"Tomato___Bacterial_spot",
	"Tomato___Early_blight",
	"Tomato___Late_blight",
	"Tomato___Leaf_Mold",
	"Tomato___Septoria_leaf_spot",
	"Tomato___Spider_mites Two-spotted_spider_mite",
	"Tomato___Target_Spot",
	"Tomato___Tomato_Yellow_Leaf_Curl_Virus",
	"Tomato___Tomato_mosaic_virus",
	"Tomato___healthy",
}

// Count is the number of classes the model was trained on
const Count = len(classNames)

// Names returns a copy of the class table in training order
func Names() []string {
	out := make([]string, Count)
	copy(out, classNames[:])
	return out
}

// Lookup maps a class index to its label. Indices outside the table
// resolve to "class_<idx>" and report ok=false.
func Lookup(idx int) (label string, ok bool) {
	if idx < 0 || idx >= Count {
		return fmt.Sprintf("class_%d", idx), false
	}
	return classNames[idx], true
}

// Index returns the position of label in the table, or -1
func Index(label string) int {
	for i, name := range classNames {
		if name == label {
			return i
		}
	}
	return -1
}
