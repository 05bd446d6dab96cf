package pipeline

// IntermediateMIMEType is the format Gemini returns edited images in. Stage 2
// always receives Stage 1's output declared with this type.
const IntermediateMIMEType = "image/png"

// CompositionInstruction normalizes the photo to passport composition.
const CompositionInstruction = `Transform the image to meet passport photo specifications.
- Dimensions: Crop to a 35mm x 35mm equivalent (a 1:1 square aspect ratio), centered on the face with proper headroom.
- Background: Change the background to a solid white or off-white.
- Composition: Ensure shoulders and both ears are clearly visible and the subject is looking directly at the camera. The pose must be formal.
The output must be only the corrected image.`

// LightingInstruction fixes exposure on the composed photo and recrops it.
const LightingInstruction = `Please fix the lighting and exposure in this photo. The subject’s face is currently underexposed and appears too dark, while the white background is overexposed and too bright.

Adjust the image so that:

The face is evenly lit, bright, and naturally toned, with realistic skin color and clear facial details.

The background highlights are reduced, especially in white or bright areas, so it looks soft and not distracting.

Overall lighting should feel balanced, warm, and natural, avoiding flat or harsh contrast.

After fixing the lighting, crop the image so that:

The face is centered in the frame.

The face fills about 70–80% of the total image area, ensuring it’s clearly visible and the main focus.

Maintain a natural headroom (not cutting off the top of the head) and keep proportions natural.

Final goal: A clear, well-lit portrait with balanced exposure and a centered, close-up crop that highlights the face attractively.`
